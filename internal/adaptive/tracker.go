package adaptive

import "time"

// Record 某用户在某学科下的滚动统计
type Record struct {
	EMAAccuracy            float64
	EMAResponseTimeSeconds float64
	EMAHintsUsed           float64
	DifficultyLevel        int
	StreakDays             int
	LastSessionDate        string
	Tokens                 int
}

// Event 单次答题提交
type Event struct {
	Correct        bool
	ResponseTimeMs int64
	HintsUsed      int
	Skipped        bool
}

// NewRecord 首次提交时使用的默认统计
func (p Params) NewRecord() Record {
	return Record{
		EMAAccuracy:            p.DefaultAccuracy,
		EMAResponseTimeSeconds: p.DefaultResponseSecs,
		EMAHintsUsed:           p.DefaultHints,
		DifficultyLevel:        p.DefaultDifficulty,
	}
}

// Apply 根据上一份统计和一次提交计算新的统计，now 按 UTC 日期处理
func Apply(p Params, prev Record, ev Event, now time.Time) Record {
	next := prev

	result := 0.0
	if ev.Correct {
		result = 1
	}
	responseSecs := float64(ev.ResponseTimeMs) / 1000
	if responseSecs < 0 {
		responseSecs = 0
	}
	hints := float64(ev.HintsUsed)
	if hints < 0 {
		hints = 0
	}

	next.EMAAccuracy = blend(p.Alpha, result, prev.EMAAccuracy)
	next.EMAResponseTimeSeconds = blend(p.Alpha, responseSecs, prev.EMAResponseTimeSeconds)
	next.EMAHintsUsed = blend(p.Alpha, hints, prev.EMAHintsUsed)

	next.StreakDays, next.LastSessionDate = NextStreak(prev.LastSessionDate, prev.StreakDays, now)

	next.DifficultyLevel = NextDifficulty(p, next.EMAAccuracy, next.EMAResponseTimeSeconds, next.EMAHintsUsed, prev.DifficultyLevel)

	if ev.Correct && !ev.Skipped {
		next.Tokens = prev.Tokens + p.CorrectTokens
	}
	return next
}

// NextDifficulty 高正确率且答题快则升一级，低正确率或提示过多则降一级
func NextDifficulty(p Params, accuracy, responseSecs, hints float64, current int) int {
	current = clamp(current, p.MinDifficulty, p.MaxDifficulty)
	switch {
	case accuracy > p.PromoteAccuracy && responseSecs <= p.PromoteMaxResponseSecs:
		return clamp(current+1, p.MinDifficulty, p.MaxDifficulty)
	case accuracy < p.DemoteAccuracy || hints > p.DemoteHints:
		return clamp(current-1, p.MinDifficulty, p.MaxDifficulty)
	}
	return current
}

func blend(alpha, sample, prev float64) float64 {
	return alpha*sample + (1-alpha)*prev
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
