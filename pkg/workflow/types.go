package workflow

import (
	"time"
)

const (
	defaultGeminiTemperature = float32(0.1)
	defaultCacheExpiration   = 5 * time.Minute
	cacheCleanupInterval     = 15 * time.Minute
	defaultTTL               = 5 * time.Minute
	defaultRateBurst         = 2
)

// 絵コンテのフレームは映画の画面比率に合わせます。
const frameAspectRatio = "16:9"

// negativeFramePrompt は絵コンテのフレームに紛れ込みやすいノイズの抑制指定です。
const negativeFramePrompt = "speech bubble, dialogue balloon, text, alphabet, letters, words, signatures, watermark, username, low quality, distorted, bad anatomy"

// frameSystemPrompt は画像生成側へ渡す共通の作画指示です。
const frameSystemPrompt = "You are a professional storyboard artist for film pre-production. Draw a single cinematic storyboard frame in clean concept-art style, pencil and marker rendering, neutral tones, clear composition and staging. No text, no panel borders."
