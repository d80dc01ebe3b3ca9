package workflow

import (
	"context"
	"fmt"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-gemini-client/pkg/gemini"

	"github.com/shouni/go-storyboard-kit/pkg/engine"
)

// geminiCompleter は gemini クライアントをテキスト補完の抽象へ合わせるアダプタです。
// 台本分解や人物抽出など、システム指示と本文の2部構成で呼ぶ層が使います。
type geminiCompleter struct {
	aiClient gemini.GenerativeModel
	model    string
}

func newGeminiCompleter(aiClient gemini.GenerativeModel, model string) *geminiCompleter {
	return &geminiCompleter{aiClient: aiClient, model: model}
}

func (c *geminiCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	prompt := systemPrompt + "\n\n" + userPrompt
	resp, err := c.aiClient.GenerateContent(ctx, prompt, c.model)
	if err != nil {
		return "", fmt.Errorf("テキスト生成に失敗しました: %w", err)
	}
	return resp.Text, nil
}

// frameImageClient は gemini-image-kit の生成器を engine.ImageClient へ合わせるアダプタです。
type frameImageClient struct {
	imgGen imagekit.ImageGenerator
}

func newFrameImageClient(imgGen imagekit.ImageGenerator) *frameImageClient {
	return &frameImageClient{imgGen: imgGen}
}

func (c *frameImageClient) GenerateImage(ctx context.Context, req engine.ImageRequest) (*engine.GeneratedImage, error) {
	resp, err := c.imgGen.GenerateMangaPanel(ctx, imagedom.ImageGenerationRequest{
		Prompt:         req.Prompt,
		SystemPrompt:   frameSystemPrompt,
		NegativePrompt: negativeFramePrompt,
		AspectRatio:    frameAspectRatio,
		Seed:           req.Seed,
	})
	if err != nil {
		return nil, err
	}
	return &engine.GeneratedImage{Data: resp.Data, MimeType: resp.MimeType}, nil
}
