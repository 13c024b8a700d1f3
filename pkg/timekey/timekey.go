// Package timekey 生成时间线排序键：高 44 位为毫秒时间戳，低 20 位为事件 ID 散列。
// 同一事件多次投递得到同一 key（幂等 upsert 的前提），排序与事件产生时间一致。
package timekey

import (
	"fmt"
	"hash/fnv"
	"time"
)

const hashBits = 20

// At 由事件创建时间与事件 ID 派生排序键
func At(t time.Time, eventID string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(eventID))
	return t.UnixMilli()<<hashBits | int64(h.Sum32()&(1<<hashBits-1))
}

// Time 还原 key 对应的事件时间（毫秒精度）
func Time(key int64) time.Time {
	return time.UnixMilli(key >> hashBits)
}

// Age 生成相对时间文案，用于 feed 展示
func Age(key int64, now time.Time) string {
	d := now.Sub(Time(key))
	switch {
	case d < time.Minute:
		s := int(d.Seconds())
		if s < 1 {
			s = 1
		}
		return fmt.Sprintf("%ds ago", s)
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
