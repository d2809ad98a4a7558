package adaptive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

type RewardType string

const (
	RewardLevelCompletion   RewardType = "level_completion"
	RewardPerfectScore      RewardType = "perfect_score"
	RewardThreeStars        RewardType = "three_stars"
	RewardChapterCompletion RewardType = "chapter_completion"
)

const MaxStars = 3

// PriorProgress 本次尝试之前该 (游戏, 难度) 的最佳记录
type PriorProgress struct {
	Completed bool
	BestStars int
}

// RewardInput 一次关卡尝试结束后评估奖励所需的状态
type RewardInput struct {
	Completed bool
	Accuracy  float64
	Stars     int

	// Previous 为 nil 表示此前没有该难度的进度
	Previous *PriorProgress

	// ChapterGames 章节内全部游戏，CompletedGames 为至少完成过一个难度的游戏（含本次）
	ChapterGames   []uint
	CompletedGames map[uint]bool
}

// EvaluateRewards 各规则相互独立，可同时触发
func EvaluateRewards(in RewardInput) []RewardType {
	var rewards []RewardType

	if in.Completed && (in.Previous == nil || !in.Previous.Completed) {
		rewards = append(rewards, RewardLevelCompletion)
	}

	if in.Completed && in.Accuracy >= 1.0 {
		rewards = append(rewards, RewardPerfectScore)
	}

	prevBest := 0
	if in.Previous != nil {
		prevBest = in.Previous.BestStars
	}
	if in.Stars == MaxStars && prevBest < MaxStars {
		rewards = append(rewards, RewardThreeStars)
	}

	if in.Completed && chapterComplete(in.ChapterGames, in.CompletedGames) {
		rewards = append(rewards, RewardChapterCompletion)
	}

	return rewards
}

func chapterComplete(games []uint, completed map[uint]bool) bool {
	if len(games) == 0 {
		return false
	}
	for _, id := range games {
		if !completed[id] {
			return false
		}
	}
	return true
}

// AttemptKey 标识一次关卡尝试：优先使用客户端的 attemptID，否则用合并后的尝试序号
func AttemptKey(attemptID string, attempts int) string {
	if attemptID != "" {
		return attemptID
	}
	return fmt.Sprintf("#%d", attempts)
}

// RewardKey 奖励的幂等键，同一个键只会发放一次。
// 章节奖励按章节去重；满分奖励按尝试去重，其余按 (游戏, 难度) 去重。
func RewardKey(userID uint, t RewardType, gameID uint, difficulty int, chapter, attemptID string) string {
	var raw string
	switch {
	case t == RewardChapterCompletion:
		raw = fmt.Sprintf("%d|%s|%s", userID, t, chapter)
	case t == RewardPerfectScore && attemptID != "":
		raw = fmt.Sprintf("%d|%s|%d|%d|%s", userID, t, gameID, difficulty, attemptID)
	default:
		raw = fmt.Sprintf("%d|%s|%d|%d", userID, t, gameID, difficulty)
	}
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
