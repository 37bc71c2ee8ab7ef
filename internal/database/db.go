package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Open はPostgreSQLデータベース接続を開く。
// databaseURLにはサービスロールのDSNを指定する。この接続は行レベルセキュリティを
// バイパスする特権データクライアントであり、管理者判定が独立に検証された後の
// 操作にのみ使用すること。
// sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}
