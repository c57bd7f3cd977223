package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// defaultFetchLimit caps rows returned by db_query when the model does not
// ask for a limit.
const defaultFetchLimit = 100

// Guard messages use the 错误： prefix the db_analyst prompt teaches the
// model to recognize.
const (
	guardSelectOnly = "错误：只允许执行SELECT查询语句"
	guardKeyword    = "错误：查询中包含不允许的关键字: %s"
)

var forbiddenSQLKeywords = []string{
	"DELETE", "UPDATE", "INSERT", "DROP", "CREATE", "ALTER", "TRUNCATE", "GRANT", "REVOKE",
}

// GuardSQL rejects anything that is not a plain SELECT. Returns the guard
// message, or "" when the statement is allowed. The guard runs before any
// connection is opened.
func GuardSQL(sql string) string {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	if !strings.HasPrefix(upper, "SELECT") {
		return guardSelectOnly
	}
	for _, kw := range forbiddenSQLKeywords {
		if strings.Contains(upper, kw) {
			return fmt.Sprintf(guardKeyword, kw)
		}
	}
	return ""
}

// dbConn is the pgx surface the tools use; split out so tests can observe
// that guarded queries never touch a connection.
type dbConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type connectFunc func(ctx context.Context) (dbConn, func(context.Context), error)

// DBTools provides read-only PostgreSQL access for the db_analyst worker.
type DBTools struct {
	connect connectFunc
}

// NewDBTools creates database tools over the given connection string.
func NewDBTools(databaseURL string) *DBTools {
	return &DBTools{
		connect: func(ctx context.Context) (dbConn, func(context.Context), error) {
			conn, err := pgx.Connect(ctx, databaseURL)
			if err != nil {
				return nil, nil, fmt.Errorf("数据库连接失败: %w", err)
			}
			return conn, func(c context.Context) { _ = conn.Close(c) }, nil
		},
	}
}

// TableInfo lists tables in a schema, or describes one table's columns.
func (d *DBTools) TableInfo(ctx context.Context, table, schema string) (string, error) {
	if schema == "" {
		schema = "public"
	}
	conn, closeFn, err := d.connect(ctx)
	if err != nil {
		return "", err
	}
	defer closeFn(ctx)

	if table == "" {
		rows, err := conn.Query(ctx,
			`SELECT table_name FROM information_schema.tables
			 WHERE table_schema = $1 ORDER BY table_name`, schema)
		if err != nil {
			return "", fmt.Errorf("查询表列表失败: %w", err)
		}
		defer rows.Close()

		var b strings.Builder
		b.WriteString("数据库中的表列表:\n")
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return "", fmt.Errorf("读取表名失败: %w", err)
			}
			b.WriteString("- " + name + "\n")
		}
		return b.String(), rows.Err()
	}

	rows, err := conn.Query(ctx,
		`SELECT column_name, data_type, COALESCE(character_maximum_length, 0),
		        is_nullable, COALESCE(column_default, '')
		 FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2
		 ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return "", fmt.Errorf("查询表结构失败: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	b.WriteString(fmt.Sprintf("表 %s 的字段信息:\n", table))
	b.WriteString("字段名 | 数据类型 | 长度 | 可空 | 默认值\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	found := false
	for rows.Next() {
		var name, dataType, nullable, def string
		var length int
		if err := rows.Scan(&name, &dataType, &length, &nullable, &def); err != nil {
			return "", fmt.Errorf("读取字段信息失败: %w", err)
		}
		found = true
		lengthInfo := ""
		if length > 0 {
			lengthInfo = fmt.Sprintf("%d", length)
		}
		nullableInfo := "否"
		if nullable == "YES" {
			nullableInfo = "是"
		}
		b.WriteString(fmt.Sprintf("%s | %s | %s | %s | %s\n", name, dataType, lengthInfo, nullableInfo, def))
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("未找到表 %s", table), nil
	}
	return b.String(), nil
}

// Query executes a guarded SELECT and formats up to limit rows. Guard
// violations come back as the result content, never as a Go error, and open
// no connection.
func (d *DBTools) Query(ctx context.Context, sql string, limit int) (string, error) {
	if msg := GuardSQL(sql); msg != "" {
		return msg, nil
	}
	if limit <= 0 {
		limit = defaultFetchLimit
	}

	conn, closeFn, err := d.connect(ctx)
	if err != nil {
		return "", err
	}
	defer closeFn(ctx)

	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return "", fmt.Errorf("查询执行失败: %w", err)
	}
	defer rows.Close()

	cols := make([]string, 0)
	for _, fd := range rows.FieldDescriptions() {
		cols = append(cols, fd.Name)
	}

	var b strings.Builder
	b.WriteString("查询结果:\n")
	header := strings.Join(cols, " | ")
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("-", len(header)+10) + "\n")

	count := 0
	for rows.Next() && count < limit {
		values, err := rows.Values()
		if err != nil {
			return "", fmt.Errorf("读取查询结果失败: %w", err)
		}
		formatted := make([]string, len(values))
		for i, v := range values {
			if v == nil {
				formatted[i] = "NULL"
			} else {
				formatted[i] = fmt.Sprintf("%v", v)
			}
		}
		b.WriteString(strings.Join(formatted, " | ") + "\n")
		count++
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if count == 0 {
		return "查询无结果", nil
	}
	if count == limit {
		b.WriteString(fmt.Sprintf("\n注意：结果已限制为前%d行", limit))
	}
	return b.String(), nil
}

// Relations lists a table's foreign key relationships.
func (d *DBTools) Relations(ctx context.Context, table, schema string) (string, error) {
	if schema == "" {
		schema = "public"
	}
	conn, closeFn, err := d.connect(ctx)
	if err != nil {
		return "", err
	}
	defer closeFn(ctx)

	rows, err := conn.Query(ctx,
		`SELECT tc.constraint_name, kcu.column_name,
		        ccu.table_name AS foreign_table, ccu.column_name AS foreign_column
		 FROM information_schema.table_constraints tc
		 JOIN information_schema.key_column_usage kcu
		   ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		 JOIN information_schema.constraint_column_usage ccu
		   ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		 WHERE tc.constraint_type = 'FOREIGN KEY'
		   AND tc.table_schema = $1 AND tc.table_name = $2
		 ORDER BY tc.constraint_name`, schema, table)
	if err != nil {
		return "", fmt.Errorf("查询外键关系失败: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	b.WriteString(fmt.Sprintf("表 %s 的外键关系:\n", table))
	b.WriteString("约束名 | 本表字段 | 引用表 | 引用字段\n")
	b.WriteString(strings.Repeat("-", 50) + "\n")
	found := false
	for rows.Next() {
		var constraint, column, refTable, refColumn string
		if err := rows.Scan(&constraint, &column, &refTable, &refColumn); err != nil {
			return "", fmt.Errorf("读取外键信息失败: %w", err)
		}
		found = true
		b.WriteString(fmt.Sprintf("%s | %s | %s | %s\n", constraint, column, refTable, refColumn))
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("表 %s 没有外键关系", table), nil
	}
	return b.String(), nil
}

// NewDBTableInfoTool wraps DBTools.TableInfo as db_table_info.
func NewDBTableInfoTool(db *DBTools) *Tool {
	return &Tool{
		Name:        "db_table_info",
		Description: "List database tables, or describe one table's columns when a table name is given.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"table":  map[string]any{"type": "string", "description": "Table name. Omit to list all tables."},
				"schema": map[string]any{"type": "string", "description": "Schema name, defaults to public."},
			},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			table, _ := args["table"].(string)
			schema, _ := args["schema"].(string)
			return db.TableInfo(ctx, table, schema)
		},
	}
}

// NewDBQueryTool wraps DBTools.Query as db_query.
func NewDBQueryTool(db *DBTools) *Tool {
	return &Tool{
		Name:        "db_query",
		Description: "Execute a read-only SELECT query. Any other statement is rejected. Results are capped at the given limit (default 100 rows).",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sql":   map[string]any{"type": "string", "description": "The SELECT statement to run."},
				"limit": map[string]any{"type": "integer", "description": "Maximum number of rows to return."},
			},
			"required": []any{"sql"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			sql, _ := args["sql"].(string)
			limit := 0
			if v, ok := args["limit"].(float64); ok {
				limit = int(v)
			}
			return db.Query(ctx, sql, limit)
		},
	}
}

// NewDBRelationsTool wraps DBTools.Relations as db_relations.
func NewDBRelationsTool(db *DBTools) *Tool {
	return &Tool{
		Name:        "db_relations",
		Description: "Show the foreign key relationships of a table.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"table":  map[string]any{"type": "string", "description": "Table name."},
				"schema": map[string]any{"type": "string", "description": "Schema name, defaults to public."},
			},
			"required": []any{"table"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			table, _ := args["table"].(string)
			schema, _ := args["schema"].(string)
			return db.Relations(ctx, table, schema)
		},
	}
}
