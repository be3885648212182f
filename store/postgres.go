package store

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JSONMap stores document data in a jsonb column.
type JSONMap map[string]interface{}

// GormDataType tells the migrator to create a jsonb column.
func (JSONMap) GormDataType() string { return "jsonb" }

// Value implements the driver.Valuer interface
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal JSONMap: unsupported type %T", value)
	}
	return json.Unmarshal(data, m)
}

// DocumentRow is the single table every collection lives in.
type DocumentRow struct {
	Collection string  `gorm:"primaryKey;size:64"`
	ID         string  `gorm:"primaryKey;size:64"`
	Seq        int64   `gorm:"autoIncrement;index"`
	Data       JSONMap `gorm:"not null"`
	Version    int64   `gorm:"not null;default:1"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (DocumentRow) TableName() string { return "documents" }

// Postgres is the Store backed by gorm and PostgreSQL jsonb operators.
type Postgres struct {
	db       *gorm.DB
	notifier Notifier
	// touched collects collections written inside a transaction; nil outside one.
	touched *[]string
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps an open gorm connection. A nil notifier gets a private Broadcaster.
func NewPostgres(db *gorm.DB, notifier Notifier) *Postgres {
	if notifier == nil {
		notifier = NewBroadcaster()
	}
	return &Postgres{db: db, notifier: notifier}
}

func (p *Postgres) changed(ctx context.Context, collection string) {
	if p.touched != nil {
		*p.touched = append(*p.touched, collection)
		return
	}
	p.notifier.Publish(ctx, collection)
}

func toDocument(r DocumentRow) Document {
	data := map[string]interface{}(r.Data)
	if data == nil {
		data = map[string]interface{}{}
	}
	return Document{ID: r.ID, Data: data, Version: r.Version}
}

// condition compiles a filter into a jsonb predicate. Field names are
// validated identifiers, so inlining them is safe.
func condition(f Filter) (string, []interface{}, error) {
	if err := validateFilter(f); err != nil {
		return "", nil, err
	}
	if f.Field == DocumentID {
		if f.Op == OpIn {
			return "id IN ?", []interface{}{f.Value}, nil
		}
		return fmt.Sprintf("id %s ?", sqlOperator(f.Op)), []interface{}{f.Value}, nil
	}
	if f.Op == OpIn {
		return fmt.Sprintf("data->>'%s' IN ?", f.Field), []interface{}{f.Value}, nil
	}
	operand := f.Value
	if f.Op == OpArrayContains {
		operand = []interface{}{f.Value}
	}
	b, err := json.Marshal(operand)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return fmt.Sprintf("data->'%s' %s ?::jsonb", f.Field, sqlOperator(f.Op)), []interface{}{string(b)}, nil
}

func sqlOperator(op Op) string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "<>"
	case OpArrayContains:
		return "@>"
	}
	return string(op)
}

func (p *Postgres) scope(ctx context.Context, collection string) *gorm.DB {
	return p.db.WithContext(ctx).Model(&DocumentRow{}).Where("collection = ?", collection)
}

func (p *Postgres) Find(ctx context.Context, collection, id string) (*Document, error) {
	var row DocumentRow
	err := p.scope(ctx, collection).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	doc := toDocument(row)
	return &doc, nil
}

func (p *Postgres) All(ctx context.Context, collection string) ([]Document, error) {
	return p.Get(ctx, Q(collection))
}

func (p *Postgres) Get(ctx context.Context, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	tx := p.scope(ctx, q.Collection)
	for _, f := range q.Filters {
		sql, args, err := condition(f)
		if err != nil {
			return nil, err
		}
		tx = tx.Where(sql, args...)
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	if q.OrderBy != "" {
		tx = tx.Order(fmt.Sprintf("data->'%s' %s, seq %s", q.OrderBy, dir, dir))
	} else {
		tx = tx.Order("seq ASC")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var rows []DocumentRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Document, len(rows))
	for i, r := range rows {
		out[i] = toDocument(r)
	}
	return out, nil
}

func (p *Postgres) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	norm, err := normalizeMap(data)
	if err != nil {
		return "", err
	}
	row := DocumentRow{Collection: collection, ID: uuid.NewString(), Data: norm, Version: 1}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	p.changed(ctx, collection)
	return row.ID, nil
}

func (p *Postgres) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	norm, err := normalizeMap(data)
	if err != nil {
		return err
	}
	row := DocumentRow{Collection: collection, ID: id, Data: norm, Version: 1}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"data":       gorm.Expr("documents.data || excluded.data"),
			"version":    gorm.Expr("documents.version + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
	if err != nil {
		return err
	}
	p.changed(ctx, collection)
	return nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, patch map[string]interface{}, preconditions ...Filter) error {
	norm, err := normalizeMap(patch)
	if err != nil {
		return err
	}
	b, err := json.Marshal(norm)
	if err != nil {
		return err
	}
	tx := p.scope(ctx, collection).Where("id = ?", id)
	for _, f := range preconditions {
		sql, args, err := condition(f)
		if err != nil {
			return err
		}
		tx = tx.Where(sql, args...)
	}
	res := tx.Updates(map[string]interface{}{
		"data":       gorm.Expr("data || ?::jsonb", string(b)),
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := p.scope(ctx, collection).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return fmt.Errorf("%s/%s: %w", collection, id, ErrConflict)
	}
	p.changed(ctx, collection)
	return nil
}

func (p *Postgres) Remove(ctx context.Context, collection, id string) error {
	res := p.db.WithContext(ctx).Where("collection = ? AND id = ?", collection, id).Delete(&DocumentRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	p.changed(ctx, collection)
	return nil
}

// RunInTx publishes change signals only after the transaction commits.
func (p *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if p.touched != nil {
		return fn(ctx, p)
	}
	var touched []string
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Postgres{db: tx, notifier: p.notifier, touched: &touched})
	})
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(touched))
	for _, c := range touched {
		if !seen[c] {
			seen[c] = true
			p.notifier.Publish(ctx, c)
		}
	}
	return nil
}

func (p *Postgres) Changes(collection string) (<-chan struct{}, func()) {
	return p.notifier.Subscribe(collection)
}

// Migrate creates the documents table and its lookup indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&DocumentRow{}); err != nil {
		return err
	}
	return db.Exec("CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data jsonb_path_ops)").Error
}
