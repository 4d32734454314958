package repository

import "context"

// TxRepos は同じトランザクションに乗ったリポジトリ
type TxRepos interface {
	Products() ProductRepository
	AuditLogs() AuditLogRepository
}

// TransactionManager は fn がエラーを返したらロールバック、nilならコミットする
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
