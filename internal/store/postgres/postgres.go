// Package postgres implements the repository store over PostgreSQL via
// pgx, for multi-connection deployments.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rakunlabs/moo/internal/config"
	mcrypto "github.com/rakunlabs/moo/internal/crypto"
	"github.com/rakunlabs/moo/internal/entity"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
)

var (
	ConnMaxLifetime = 15 * time.Minute
	MaxIdleConns    = 3
	MaxOpenConns    = 3

	DefaultTablePrefix = "moo_"
)

type Postgres struct {
	db   *sql.DB
	goqu *goqu.Database

	tableEntities      exp.IdentifierExpression
	tableVerbs         exp.IdentifierExpression
	tableCapabilities  exp.IdentifierExpression
	tableScheduled     exp.IdentifierExpression
	tableChannelMaps   exp.IdentifierExpression
	tableActiveSession exp.IdentifierExpression

	// encKey is the AES-256 key used to encrypt/decrypt capability params.
	// nil means encryption is disabled. Protected by encKeyMu.
	encKey   []byte
	encKeyMu sync.RWMutex
}

func New(ctx context.Context, cfg *config.StorePostgres, encKey []byte) (*Postgres, error) {
	if cfg == nil {
		return nil, errors.New("postgres configuration is nil")
	}

	if cfg.Datasource == "" {
		return nil, errors.New("postgres datasource is required")
	}

	tablePrefix := DefaultTablePrefix
	if cfg.TablePrefix != nil {
		tablePrefix = *cfg.TablePrefix
	}

	// /////////////////////////////////////////////
	// Run migrations.
	migrate := cfg.Migrate
	if migrate.Table == "" {
		migrate.Table = "migrations"
	}

	if migrate.Datasource == "" {
		migrate.Datasource = cfg.Datasource
	}

	if migrate.Schema == "" {
		migrate.Schema = cfg.Schema
	}

	migrate.Table = tablePrefix + migrate.Table
	if migrate.Values == nil {
		migrate.Values = make(map[string]string)
	}
	migrate.Values["TABLE_PREFIX"] = tablePrefix

	if err := MigrateDB(ctx, &migrate); err != nil {
		return nil, fmt.Errorf("migrate store postgres: %w", err)
	}
	// /////////////////////////////////////////////

	db, err := sql.Open("pgx", cfg.Datasource)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// Set schema search path if configured.
	if cfg.Schema != "" {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", cfg.Schema)); err != nil {
			db.Close()

			return nil, fmt.Errorf("set search_path: %w", err)
		}
	}

	if cfg.ConnMaxLifetime != nil {
		ConnMaxLifetime = *cfg.ConnMaxLifetime
	}
	if cfg.MaxIdleConns != nil {
		MaxIdleConns = *cfg.MaxIdleConns
	}
	if cfg.MaxOpenConns != nil {
		MaxOpenConns = *cfg.MaxOpenConns
	}

	db.SetConnMaxLifetime(ConnMaxLifetime)
	db.SetMaxIdleConns(MaxIdleConns)
	db.SetMaxOpenConns(MaxOpenConns)

	slog.Info("connected to store postgres")

	dbGoqu := goqu.New("postgres", db)

	return &Postgres{
		db:                 db,
		goqu:               dbGoqu,
		tableEntities:      goqu.T(tablePrefix + "entities"),
		tableVerbs:         goqu.T(tablePrefix + "verbs"),
		tableCapabilities:  goqu.T(tablePrefix + "capabilities"),
		tableScheduled:     goqu.T(tablePrefix + "scheduled_tasks"),
		tableChannelMaps:   goqu.T(tablePrefix + "channel_maps"),
		tableActiveSession: goqu.T(tablePrefix + "active_sessions"),
		encKey:             encKey,
	}, nil
}

func (p *Postgres) Close() {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			slog.Error("close store postgres connection", "error", err)
		}
	}
}

// ─── Entity CRUD ───

func (p *Postgres) CreateEntity(ctx context.Context, props map[string]any) (int64, error) {
	propsJSON, err := json.Marshal(props)
	if err != nil {
		return 0, fmt.Errorf("marshal props: %w", err)
	}

	name, _ := props["name"].(string)

	query, _, err := p.goqu.Insert(p.tableEntities).Rows(
		goqu.Record{"name": name, "props_json": propsJSON},
	).Returning("id").ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build insert entity query: %w", err)
	}

	var id int64
	if err := p.db.QueryRowContext(ctx, query).Scan(&id); err != nil {
		return 0, fmt.Errorf("create entity: %w", err)
	}

	return id, nil
}

type entityRow struct {
	ID          int64
	Name        string
	PrototypeID sql.NullInt64
	OwnerID     sql.NullInt64
	PropsJSON   json.RawMessage
}

func scanEntity(row entityRow) (*entity.Entity, error) {
	var props map[string]any
	if err := json.Unmarshal(row.PropsJSON, &props); err != nil {
		return nil, fmt.Errorf("unmarshal props for entity %d: %w", row.ID, err)
	}

	e := &entity.Entity{ID: row.ID, Name: row.Name, Props: props}
	if row.PrototypeID.Valid {
		e.PrototypeID = &row.PrototypeID.Int64
	}
	if row.OwnerID.Valid {
		e.OwnerID = &row.OwnerID.Int64
	}

	return e, nil
}

func (p *Postgres) GetEntity(ctx context.Context, id int64) (*entity.Entity, error) {
	query, _, err := p.goqu.From(p.tableEntities).
		Select("id", "name", "prototype_id", "owner_id", "props_json").
		Where(goqu.I("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get entity query: %w", err)
	}

	var row entityRow
	err = p.db.QueryRowContext(ctx, query).Scan(&row.ID, &row.Name, &row.PrototypeID, &row.OwnerID, &row.PropsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity %d: %w", id, err)
	}

	return scanEntity(row)
}

func (p *Postgres) GetEntities(ctx context.Context, ids []int64) ([]entity.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	idVals := make([]any, len(ids))
	for i, id := range ids {
		idVals[i] = id
	}

	query, _, err := p.goqu.From(p.tableEntities).
		Select("id", "name", "prototype_id", "owner_id", "props_json").
		Where(goqu.I("id").In(idVals...)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get entities query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get entities: %w", err)
	}
	defer rows.Close()

	var result []entity.Entity
	for rows.Next() {
		var row entityRow
		if err := rows.Scan(&row.ID, &row.Name, &row.PrototypeID, &row.OwnerID, &row.PropsJSON); err != nil {
			return nil, fmt.Errorf("scan entity row: %w", err)
		}

		e, err := scanEntity(row)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}

	return result, rows.Err()
}

func (p *Postgres) UpdateEntities(ctx context.Context, entities ...entity.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, e := range entities {
		propsJSON, err := json.Marshal(e.Props)
		if err != nil {
			return fmt.Errorf("marshal props for entity %d: %w", e.ID, err)
		}

		record := goqu.Record{
			"name":       e.Name,
			"props_json": propsJSON,
		}
		if e.PrototypeID != nil {
			record["prototype_id"] = *e.PrototypeID
		} else {
			record["prototype_id"] = nil
		}
		if e.OwnerID != nil {
			record["owner_id"] = *e.OwnerID
		} else {
			record["owner_id"] = nil
		}

		query, _, err := p.goqu.Update(p.tableEntities).Set(record).
			Where(goqu.I("id").Eq(e.ID)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build update entity query: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("update entity %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update entities: %w", err)
	}

	return nil
}

func (p *Postgres) DeleteEntity(ctx context.Context, id int64) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, spec := range []struct {
		table exp.IdentifierExpression
		col   string
	}{
		{p.tableVerbs, "entity_id"},
		{p.tableCapabilities, "owner_id"},
	} {
		query, _, err := p.goqu.Delete(spec.table).Where(goqu.I(spec.col).Eq(id)).ToSQL()
		if err != nil {
			return fmt.Errorf("build cascade delete query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("cascade delete for entity %d: %w", id, err)
		}
	}

	query, _, err := p.goqu.Delete(p.tableEntities).Where(goqu.I("id").Eq(id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete entity query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("delete entity %d: %w", id, err)
	}

	return tx.Commit()
}

func (p *Postgres) SetPrototypeID(ctx context.Context, id int64, protoID *int64) error {
	record := goqu.Record{}
	if protoID != nil {
		record["prototype_id"] = *protoID
	} else {
		record["prototype_id"] = nil
	}

	query, _, err := p.goqu.Update(p.tableEntities).Set(record).
		Where(goqu.I("id").Eq(id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set prototype query: %w", err)
	}

	_, err = p.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("set prototype for entity %d: %w", id, err)
	}

	return nil
}

// ─── Verb CRUD ───

func (p *Postgres) GetVerbs(ctx context.Context, entityID int64) ([]entity.Verb, error) {
	query, _, err := p.goqu.From(p.tableVerbs).
		Select("id", "entity_id", "name", "source_json").
		Where(goqu.I("entity_id").Eq(entityID)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get verbs query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get verbs for entity %d: %w", entityID, err)
	}
	defer rows.Close()

	var result []entity.Verb
	for rows.Next() {
		var id, eid int64
		var name string
		var sourceJSON json.RawMessage
		if err := rows.Scan(&id, &eid, &name, &sourceJSON); err != nil {
			return nil, fmt.Errorf("scan verb row: %w", err)
		}

		var source any
		if err := json.Unmarshal(sourceJSON, &source); err != nil {
			return nil, fmt.Errorf("unmarshal verb %q source: %w", name, err)
		}

		result = append(result, entity.Verb{ID: id, EntityID: eid, Name: name, Source: source})
	}

	return result, rows.Err()
}

func (p *Postgres) GetVerb(ctx context.Context, entityID int64, name string) (*entity.Verb, error) {
	query, _, err := p.goqu.From(p.tableVerbs).
		Select("id", "entity_id", "name", "source_json").
		Where(goqu.I("entity_id").Eq(entityID), goqu.I("name").Eq(name)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get verb query: %w", err)
	}

	var id, eid int64
	var n string
	var sourceJSON json.RawMessage
	err = p.db.QueryRowContext(ctx, query).Scan(&id, &eid, &n, &sourceJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verb %q on entity %d: %w", name, entityID, err)
	}

	var source any
	if err := json.Unmarshal(sourceJSON, &source); err != nil {
		return nil, fmt.Errorf("unmarshal verb %q source: %w", name, err)
	}

	return &entity.Verb{ID: id, EntityID: eid, Name: n, Source: source}, nil
}

func (p *Postgres) UpdateVerb(ctx context.Context, entityID int64, name string, source any) error {
	sourceJSON, err := json.Marshal(source)
	if err != nil {
		return fmt.Errorf("marshal verb source: %w", err)
	}

	existing, err := p.GetVerb(ctx, entityID, name)
	if err != nil {
		return err
	}

	if existing == nil {
		query, _, err := p.goqu.Insert(p.tableVerbs).Rows(
			goqu.Record{"entity_id": entityID, "name": name, "source_json": sourceJSON},
		).ToSQL()
		if err != nil {
			return fmt.Errorf("build insert verb query: %w", err)
		}

		_, err = p.db.ExecContext(ctx, query)
		return err
	}

	query, _, err := p.goqu.Update(p.tableVerbs).Set(
		goqu.Record{"source_json": sourceJSON},
	).Where(goqu.I("entity_id").Eq(entityID), goqu.I("name").Eq(name)).ToSQL()
	if err != nil {
		return fmt.Errorf("build update verb query: %w", err)
	}

	_, err = p.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("update verb %q on entity %d: %w", name, entityID, err)
	}

	return nil
}

// ─── Capability CRUD ───

func (p *Postgres) currentEncKey() []byte {
	p.encKeyMu.RLock()
	defer p.encKeyMu.RUnlock()
	return p.encKey
}

func (p *Postgres) GetCapabilities(ctx context.Context, ownerID int64) ([]entity.Capability, error) {
	query, _, err := p.goqu.From(p.tableCapabilities).
		Select("id", "owner_id", "type", "params_json").
		Where(goqu.I("owner_id").Eq(ownerID)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get capabilities query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get capabilities for owner %d: %w", ownerID, err)
	}
	defer rows.Close()

	encKey := p.currentEncKey()

	var result []entity.Capability
	for rows.Next() {
		var id, oid int64
		var typ string
		var paramsJSON json.RawMessage
		if err := rows.Scan(&id, &oid, &typ, &paramsJSON); err != nil {
			return nil, fmt.Errorf("scan capability row: %w", err)
		}

		cap, err := scanCapability(id, oid, typ, paramsJSON, encKey)
		if err != nil {
			return nil, err
		}
		result = append(result, *cap)
	}

	return result, rows.Err()
}

func scanCapability(id, ownerID int64, typ string, paramsJSON json.RawMessage, encKey []byte) (*entity.Capability, error) {
	var params map[string]any
	if err := json.Unmarshal(paramsJSON, &params); err != nil {
		return nil, fmt.Errorf("unmarshal capability %d params: %w", id, err)
	}

	params, err := mcrypto.DecryptParams(params, encKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt capability %d params: %w", id, err)
	}

	return &entity.Capability{ID: id, OwnerID: ownerID, Type: typ, Params: params}, nil
}

func (p *Postgres) GetCapability(ctx context.Context, id int64) (*entity.Capability, error) {
	query, _, err := p.goqu.From(p.tableCapabilities).
		Select("id", "owner_id", "type", "params_json").
		Where(goqu.I("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get capability query: %w", err)
	}

	var cid, oid int64
	var typ string
	var paramsJSON json.RawMessage
	err = p.db.QueryRowContext(ctx, query).Scan(&cid, &oid, &typ, &paramsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get capability %d: %w", id, err)
	}

	return scanCapability(cid, oid, typ, paramsJSON, p.currentEncKey())
}

func (p *Postgres) CreateCapability(ctx context.Context, ownerID int64, typ string, params map[string]any) (int64, error) {
	encrypted, err := mcrypto.EncryptParams(params, p.currentEncKey())
	if err != nil {
		return 0, fmt.Errorf("encrypt capability params: %w", err)
	}

	paramsJSON, err := json.Marshal(encrypted)
	if err != nil {
		return 0, fmt.Errorf("marshal capability params: %w", err)
	}

	query, _, err := p.goqu.Insert(p.tableCapabilities).Rows(
		goqu.Record{"owner_id": ownerID, "type": typ, "params_json": paramsJSON},
	).Returning("id").ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build insert capability query: %w", err)
	}

	var id int64
	if err := p.db.QueryRowContext(ctx, query).Scan(&id); err != nil {
		return 0, fmt.Errorf("create capability: %w", err)
	}

	return id, nil
}

func (p *Postgres) UpdateCapabilityOwner(ctx context.Context, id int64, newOwnerID int64) error {
	query, _, err := p.goqu.Update(p.tableCapabilities).Set(
		goqu.Record{"owner_id": newOwnerID},
	).Where(goqu.I("id").Eq(id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build give capability query: %w", err)
	}

	res, err := p.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("give capability %d: %w", id, err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("capability %d not found", id)
	}

	return nil
}

// ─── Scheduled tasks ───

func (p *Postgres) ScheduleTask(ctx context.Context, entityID int64, verb string, args []any, executeAt int64) (int64, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return 0, fmt.Errorf("marshal scheduled task args: %w", err)
	}

	query, _, err := p.goqu.Insert(p.tableScheduled).Rows(
		goqu.Record{
			"entity_id":  entityID,
			"verb":       verb,
			"args_json":  argsJSON,
			"execute_at": executeAt,
		},
	).Returning("id").ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build schedule task query: %w", err)
	}

	var id int64
	if err := p.db.QueryRowContext(ctx, query).Scan(&id); err != nil {
		return 0, fmt.Errorf("schedule task: %w", err)
	}

	return id, nil
}

func (p *Postgres) PopDueTasks(ctx context.Context, now int64) ([]entity.ScheduledTask, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	selectQuery, _, err := p.goqu.From(p.tableScheduled).
		Select("id", "entity_id", "verb", "args_json", "execute_at").
		Where(goqu.I("execute_at").Lte(now)).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build pop due tasks select: %w", err)
	}

	rows, err := tx.QueryContext(ctx, selectQuery)
	if err != nil {
		return nil, fmt.Errorf("select due tasks: %w", err)
	}

	var tasks []entity.ScheduledTask
	var ids []any
	for rows.Next() {
		var id, eid, executeAt int64
		var verb string
		var argsJSON json.RawMessage
		if err := rows.Scan(&id, &eid, &verb, &argsJSON, &executeAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan scheduled task row: %w", err)
		}

		var args []any
		if err := json.Unmarshal(argsJSON, &args); err != nil {
			rows.Close()
			return nil, fmt.Errorf("unmarshal scheduled task %d args: %w", id, err)
		}

		tasks = append(tasks, entity.ScheduledTask{ID: id, EntityID: eid, Verb: verb, Args: args, ExecuteAt: executeAt})
		ids = append(ids, id)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scheduled tasks: %w", err)
	}

	if len(ids) > 0 {
		deleteQuery, _, err := p.goqu.Delete(p.tableScheduled).Where(goqu.I("id").In(ids...)).ToSQL()
		if err != nil {
			return nil, fmt.Errorf("build delete due tasks query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, deleteQuery); err != nil {
			return nil, fmt.Errorf("delete due tasks: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit pop due tasks: %w", err)
	}

	return tasks, nil
}

// ─── Bridge binding tables (opaque to the core) ───

func (p *Postgres) GetChannelMap(ctx context.Context, channelID string) (*entity.ChannelMap, error) {
	query, _, err := p.goqu.From(p.tableChannelMaps).
		Select("channel_id", "room_id").
		Where(goqu.I("channel_id").Eq(channelID)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get channel map query: %w", err)
	}

	var m entity.ChannelMap
	err = p.db.QueryRowContext(ctx, query).Scan(&m.ChannelID, &m.RoomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel map %q: %w", channelID, err)
	}

	return &m, nil
}

func (p *Postgres) SetChannelMap(ctx context.Context, channelID string, roomID int64) error {
	existing, err := p.GetChannelMap(ctx, channelID)
	if err != nil {
		return err
	}

	if existing == nil {
		query, _, err := p.goqu.Insert(p.tableChannelMaps).Rows(
			goqu.Record{"channel_id": channelID, "room_id": roomID},
		).ToSQL()
		if err != nil {
			return fmt.Errorf("build insert channel map query: %w", err)
		}
		_, err = p.db.ExecContext(ctx, query)
		return err
	}

	query, _, err := p.goqu.Update(p.tableChannelMaps).Set(
		goqu.Record{"room_id": roomID},
	).Where(goqu.I("channel_id").Eq(channelID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build update channel map query: %w", err)
	}

	_, err = p.db.ExecContext(ctx, query)
	return err
}

func (p *Postgres) GetActiveSession(ctx context.Context, discordID, channelID string) (*entity.ActiveSession, error) {
	query, _, err := p.goqu.From(p.tableActiveSession).
		Select("discord_id", "channel_id", "entity_id").
		Where(goqu.I("discord_id").Eq(discordID), goqu.I("channel_id").Eq(channelID)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get active session query: %w", err)
	}

	var a entity.ActiveSession
	err = p.db.QueryRowContext(ctx, query).Scan(&a.DiscordID, &a.ChannelID, &a.EntityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session %q/%q: %w", discordID, channelID, err)
	}

	return &a, nil
}

func (p *Postgres) SetActiveSession(ctx context.Context, discordID, channelID string, entityID int64) error {
	existing, err := p.GetActiveSession(ctx, discordID, channelID)
	if err != nil {
		return err
	}

	if existing == nil {
		query, _, err := p.goqu.Insert(p.tableActiveSession).Rows(
			goqu.Record{"discord_id": discordID, "channel_id": channelID, "entity_id": entityID},
		).ToSQL()
		if err != nil {
			return fmt.Errorf("build insert active session query: %w", err)
		}
		_, err = p.db.ExecContext(ctx, query)
		return err
	}

	query, _, err := p.goqu.Update(p.tableActiveSession).Set(
		goqu.Record{"entity_id": entityID},
	).Where(goqu.I("discord_id").Eq(discordID), goqu.I("channel_id").Eq(channelID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build update active session query: %w", err)
	}

	_, err = p.db.ExecContext(ctx, query)
	return err
}
