package adaptive

import "time"

const DateLayout = "2006-01-02"

// DateOf 返回 t 的 UTC 日期字符串
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// NextStreak 返回新的连续天数和最近学习日期。
// 昨天学过则加一，今天已学过保持不变，其余情况重置为 1。
func NextStreak(lastDate string, streak int, now time.Time) (int, string) {
	today := DateOf(now)
	yesterday := DateOf(now.UTC().AddDate(0, 0, -1))

	switch lastDate {
	case yesterday:
		return streak + 1, today
	case today:
		return streak, today
	}
	return 1, today
}

// StreakAlive 判断在 now 时刻连续记录是否仍然有效（今天或昨天学过）
func StreakAlive(lastDate string, now time.Time) bool {
	return lastDate == DateOf(now) || lastDate == DateOf(now.UTC().AddDate(0, 0, -1))
}
