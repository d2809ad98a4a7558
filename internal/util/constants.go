package util

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// gin 上下文中保存 JWT claims 的键
const ContextUserKey = "user"
