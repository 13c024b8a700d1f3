package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMentions(t *testing.T) {
	cases := []struct {
		body string
		want []string
	}{
		{"hello @alice how are you", []string{"alice"}},
		{"@alice @bob @alice", []string{"alice", "bob"}},
		{"mail me at a@b.com", []string{"b"}}, // 邮箱也会命中，靠用户名解析失败兜底丢弃
		{"no mentions here", nil},
		{"@under_score and @digits123", []string{"under_score", "digits123"}},
		{"", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseMentions(tc.body), "body=%q", tc.body)
	}
}
