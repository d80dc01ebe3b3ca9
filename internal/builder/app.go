package builder

import (
	"github.com/shouni/go-storyboard-kit/internal/config"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-storyboard-kit/pkg/store"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各実行関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config     *config.Config          // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、モデル名など）。
	Options    config.GenerateOptions  // Optionsは、コマンドラインから渡された実行時の設定です（ジョブID、シーン番号など）。
	Reader     remoteio.InputReader    // Readerは、脚本ファイルの読み込みに使用する入力元です。
	Writer     remoteio.OutputWriter   // Writerは、CSVや画像を保存するための出力先です。
	Store      store.Store             // Storeは、シーン・ショット・台帳を保持する永続化層です。
	Manager    *workflow.Manager       // Managerは、解析から書き出しまでの各工程を束ねる組み立て層です。
	httpClient httpkit.ClientInterface // httpClient は外部APIとの通信に使う共通クライアント
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	httpClient httpkit.ClientInterface,
	reader remoteio.InputReader,
	writer remoteio.OutputWriter,
	st store.Store,
	manager *workflow.Manager,
) AppContext {
	return AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		Reader:     reader,
		Writer:     writer,
		Store:      st,
		Manager:    manager,
		httpClient: httpClient,
	}
}
