// Package adaptive 包含自适应难度、连续学习天数与奖励规则的纯计算逻辑，不依赖存储。
package adaptive

// Params 自适应难度的阈值与默认值，通过配置文件 adaptive 段加载
type Params struct {
	Alpha float64 `mapstructure:"alpha"`

	PromoteAccuracy        float64 `mapstructure:"promote_accuracy"`
	PromoteMaxResponseSecs float64 `mapstructure:"promote_max_response_seconds"`
	DemoteAccuracy         float64 `mapstructure:"demote_accuracy"`
	DemoteHints            float64 `mapstructure:"demote_hints"`

	MinDifficulty int `mapstructure:"min_difficulty"`
	MaxDifficulty int `mapstructure:"max_difficulty"`

	CorrectTokens int `mapstructure:"correct_tokens"`

	DefaultAccuracy     float64 `mapstructure:"default_accuracy"`
	DefaultResponseSecs float64 `mapstructure:"default_response_seconds"`
	DefaultHints        float64 `mapstructure:"default_hints"`
	DefaultDifficulty   int     `mapstructure:"default_difficulty"`

	// 版本冲突时整个事务的最大重试次数
	MaxUpdateRetries int `mapstructure:"max_update_retries"`
}

func DefaultParams() Params {
	return Params{
		Alpha:                  0.2,
		PromoteAccuracy:        0.8,
		PromoteMaxResponseSecs: 10,
		DemoteAccuracy:         0.5,
		DemoteHints:            1,
		MinDifficulty:          1,
		MaxDifficulty:          5,
		CorrectTokens:          10,
		DefaultAccuracy:        0.7,
		DefaultResponseSecs:    10,
		DefaultHints:           0,
		DefaultDifficulty:      2,
		MaxUpdateRetries:       3,
	}
}

// Normalize 用默认值替换越界的字段。阈值为 0 是合法配置，缺省键由配置层的默认值补齐。
func (p Params) Normalize() Params {
	d := DefaultParams()
	if p.Alpha <= 0 || p.Alpha > 1 {
		p.Alpha = d.Alpha
	}
	if p.MinDifficulty < 1 {
		p.MinDifficulty = d.MinDifficulty
	}
	if p.MaxDifficulty < p.MinDifficulty {
		p.MaxDifficulty = d.MaxDifficulty
		if p.MaxDifficulty < p.MinDifficulty {
			p.MaxDifficulty = p.MinDifficulty
		}
	}
	if p.PromoteAccuracy < 0 || p.PromoteAccuracy > 1 {
		p.PromoteAccuracy = d.PromoteAccuracy
	}
	if p.PromoteMaxResponseSecs < 0 {
		p.PromoteMaxResponseSecs = d.PromoteMaxResponseSecs
	}
	if p.DemoteAccuracy < 0 || p.DemoteAccuracy > 1 {
		p.DemoteAccuracy = d.DemoteAccuracy
	}
	if p.DemoteHints < 0 {
		p.DemoteHints = d.DemoteHints
	}
	if p.CorrectTokens < 0 {
		p.CorrectTokens = 0
	}
	if p.DefaultAccuracy <= 0 || p.DefaultAccuracy > 1 {
		p.DefaultAccuracy = d.DefaultAccuracy
	}
	if p.DefaultResponseSecs <= 0 {
		p.DefaultResponseSecs = d.DefaultResponseSecs
	}
	if p.DefaultHints < 0 {
		p.DefaultHints = 0
	}
	// 难度从 1 开始，0 只可能是未设置
	if p.DefaultDifficulty == 0 {
		p.DefaultDifficulty = d.DefaultDifficulty
	}
	p.DefaultDifficulty = clamp(p.DefaultDifficulty, p.MinDifficulty, p.MaxDifficulty)
	if p.MaxUpdateRetries < 1 {
		p.MaxUpdateRetries = d.MaxUpdateRetries
	}
	return p
}

// RewardValues 每种奖励发放的代币数量
type RewardValues struct {
	LevelCompletion   int `mapstructure:"level_completion"`
	PerfectScore      int `mapstructure:"perfect_score"`
	ThreeStars        int `mapstructure:"three_stars"`
	ChapterCompletion int `mapstructure:"chapter_completion"`
}

func DefaultRewardValues() RewardValues {
	return RewardValues{
		LevelCompletion:   20,
		PerfectScore:      15,
		ThreeStars:        10,
		ChapterCompletion: 50,
	}
}

func (v RewardValues) Tokens(t RewardType) int {
	switch t {
	case RewardLevelCompletion:
		return v.LevelCompletion
	case RewardPerfectScore:
		return v.PerfectScore
	case RewardThreeStars:
		return v.ThreeStars
	case RewardChapterCompletion:
		return v.ChapterCompletion
	}
	return 0
}
