package service

import "regexp"

var mentionRe = regexp.MustCompile(`@([A-Za-z0-9_]+)`)

// ParseMentions 提取正文中的 @username，去重且保持出现顺序
func ParseMentions(body string) []string {
	matches := mentionRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}
