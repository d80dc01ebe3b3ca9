package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/store"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"
)

// InitializeStore はSQLiteの永続化層を開きます。
func InitializeStore(cfg *config.Config) (*store.SQLiteStore, error) {
	st, err := store.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("永続化層の初期化に失敗したのだ (path: %s): %w", cfg.DatabasePath, err)
	}
	return st, nil
}

// InitializeManager はワークフローの組み立て層を構築します。
func InitializeManager(
	ctx context.Context,
	cfg *config.Config,
	httpClient httpkit.ClientInterface,
	reader remoteio.InputReader,
	writer remoteio.OutputWriter,
	st store.Store,
) (*workflow.Manager, error) {
	manager, err := workflow.New(ctx, workflow.ManagerArgs{
		Config:     cfg.ToPkgConfig(),
		HTTPClient: httpClient,
		Reader:     reader,
		Writer:     writer,
		Store:      st,
	})
	if err != nil {
		return nil, fmt.Errorf("Managerの構築に失敗したのだ: %w", err)
	}
	return manager, nil
}
