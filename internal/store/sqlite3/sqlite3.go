// Package sqlite3 implements the repository store over a pure-Go sqlite
// driver, for the default single-process deployment.
package sqlite3

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rakunlabs/moo/internal/config"
	mcrypto "github.com/rakunlabs/moo/internal/crypto"
	"github.com/rakunlabs/moo/internal/entity"

	_ "modernc.org/sqlite"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
)

var DefaultTablePrefix = "moo_"

type SQLite struct {
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

func New(ctx context.Context, cfg *config.StoreSQLite, encKey []byte) (*SQLite, error) {
	if cfg == nil {
		return nil, errors.New("sqlite configuration is nil")
	}

	if cfg.Datasource == "" {
		return nil, errors.New("sqlite datasource is required")
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

	migrate.Table = tablePrefix + migrate.Table
	if migrate.Values == nil {
		migrate.Values = make(map[string]string)
	}
	migrate.Values["TABLE_PREFIX"] = tablePrefix

	if err := MigrateDB(ctx, &migrate); err != nil {
		return nil, fmt.Errorf("migrate store sqlite: %w", err)
	}
	// /////////////////////////////////////////////

	db, err := sql.Open("sqlite", cfg.Datasource)
	if err != nil {
		return nil, fmt.Errorf("open sqlite connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()

		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()

		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// SQLite is single-writer; limit connections accordingly.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	slog.Info("connected to store sqlite")

	dbGoqu := goqu.New("sqlite3", db)

	return &SQLite{
		db:                  db,
		goqu:                dbGoqu,
		tableEntities:       goqu.T(tablePrefix + "entities"),
		tableVerbs:          goqu.T(tablePrefix + "verbs"),
		tableCapabilities:   goqu.T(tablePrefix + "capabilities"),
		tableScheduled:      goqu.T(tablePrefix + "scheduled_tasks"),
		tableChannelMaps:    goqu.T(tablePrefix + "channel_maps"),
		tableActiveSession:  goqu.T(tablePrefix + "active_sessions"),
		encKey:              encKey,
	}, nil
}

func (s *SQLite) Close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("close store sqlite connection", "error", err)
		}
	}
}

// ─── Entity CRUD ───

func (s *SQLite) CreateEntity(ctx context.Context, props map[string]any) (int64, error) {
	propsJSON, err := json.Marshal(props)
	if err != nil {
		return 0, fmt.Errorf("marshal props: %w", err)
	}

	query, _, err := s.goqu.Insert(s.tableEntities).Rows(
		goqu.Record{"name": nameFromProps(props), "props_json": string(propsJSON)},
	).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build insert entity query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("create entity: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read last insert id: %w", err)
	}

	return id, nil
}

func nameFromProps(props map[string]any) string {
	if name, ok := props["name"].(string); ok {
		return name
	}
	return ""
}

type entityRow struct {
	ID          int64
	Name        string
	PrototypeID sql.NullInt64
	OwnerID     sql.NullInt64
	PropsJSON   string
}

func scanEntity(row entityRow) (*entity.Entity, error) {
	var props map[string]any
	if err := json.Unmarshal([]byte(row.PropsJSON), &props); err != nil {
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

func (s *SQLite) GetEntity(ctx context.Context, id int64) (*entity.Entity, error) {
	query, _, err := s.goqu.From(s.tableEntities).
		Select("id", "name", "prototype_id", "owner_id", "props_json").
		Where(goqu.I("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get entity query: %w", err)
	}

	var row entityRow
	err = s.db.QueryRowContext(ctx, query).Scan(&row.ID, &row.Name, &row.PrototypeID, &row.OwnerID, &row.PropsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity %d: %w", id, err)
	}

	return scanEntity(row)
}

func (s *SQLite) GetEntities(ctx context.Context, ids []int64) ([]entity.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	idVals := make([]any, len(ids))
	for i, id := range ids {
		idVals[i] = id
	}

	query, _, err := s.goqu.From(s.tableEntities).
		Select("id", "name", "prototype_id", "owner_id", "props_json").
		Where(goqu.I("id").In(idVals...)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get entities query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
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

func (s *SQLite) UpdateEntities(ctx context.Context, entities ...entity.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
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
			"props_json": string(propsJSON),
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

		query, _, err := s.goqu.Update(s.tableEntities).Set(record).
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

func (s *SQLite) DeleteEntity(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []exp.IdentifierExpression{s.tableVerbs, s.tableCapabilities} {
		col := "entity_id"
		if table == s.tableCapabilities {
			col = "owner_id"
		}

		query, _, err := s.goqu.Delete(table).Where(goqu.I(col).Eq(id)).ToSQL()
		if err != nil {
			return fmt.Errorf("build cascade delete query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("cascade delete for entity %d: %w", id, err)
		}
	}

	query, _, err := s.goqu.Delete(s.tableEntities).Where(goqu.I("id").Eq(id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete entity query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("delete entity %d: %w", id, err)
	}

	return tx.Commit()
}

func (s *SQLite) SetPrototypeID(ctx context.Context, id int64, protoID *int64) error {
	record := goqu.Record{}
	if protoID != nil {
		record["prototype_id"] = *protoID
	} else {
		record["prototype_id"] = nil
	}

	query, _, err := s.goqu.Update(s.tableEntities).Set(record).
		Where(goqu.I("id").Eq(id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set prototype query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("set prototype for entity %d: %w", id, err)
	}

	return nil
}

// ─── Verb CRUD ───

func (s *SQLite) GetVerbs(ctx context.Context, entityID int64) ([]entity.Verb, error) {
	query, _, err := s.goqu.From(s.tableVerbs).
		Select("id", "entity_id", "name", "source_json").
		Where(goqu.I("entity_id").Eq(entityID)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get verbs query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get verbs for entity %d: %w", entityID, err)
	}
	defer rows.Close()

	var result []entity.Verb
	for rows.Next() {
		var id, eid int64
		var name, sourceJSON string
		if err := rows.Scan(&id, &eid, &name, &sourceJSON); err != nil {
			return nil, fmt.Errorf("scan verb row: %w", err)
		}

		var source any
		if err := json.Unmarshal([]byte(sourceJSON), &source); err != nil {
			return nil, fmt.Errorf("unmarshal verb %q source: %w", name, err)
		}

		result = append(result, entity.Verb{ID: id, EntityID: eid, Name: name, Source: source})
	}

	return result, rows.Err()
}

func (s *SQLite) GetVerb(ctx context.Context, entityID int64, name string) (*entity.Verb, error) {
	query, _, err := s.goqu.From(s.tableVerbs).
		Select("id", "entity_id", "name", "source_json").
		Where(goqu.I("entity_id").Eq(entityID), goqu.I("name").Eq(name)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get verb query: %w", err)
	}

	var id, eid int64
	var n, sourceJSON string
	err = s.db.QueryRowContext(ctx, query).Scan(&id, &eid, &n, &sourceJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verb %q on entity %d: %w", name, entityID, err)
	}

	var source any
	if err := json.Unmarshal([]byte(sourceJSON), &source); err != nil {
		return nil, fmt.Errorf("unmarshal verb %q source: %w", name, err)
	}

	return &entity.Verb{ID: id, EntityID: eid, Name: n, Source: source}, nil
}

func (s *SQLite) UpdateVerb(ctx context.Context, entityID int64, name string, source any) error {
	sourceJSON, err := json.Marshal(source)
	if err != nil {
		return fmt.Errorf("marshal verb source: %w", err)
	}

	existing, err := s.GetVerb(ctx, entityID, name)
	if err != nil {
		return err
	}

	if existing == nil {
		query, _, err := s.goqu.Insert(s.tableVerbs).Rows(
			goqu.Record{"entity_id": entityID, "name": name, "source_json": string(sourceJSON)},
		).ToSQL()
		if err != nil {
			return fmt.Errorf("build insert verb query: %w", err)
		}

		_, err = s.db.ExecContext(ctx, query)
		if err != nil {
			return fmt.Errorf("create verb %q on entity %d: %w", name, entityID, err)
		}

		return nil
	}

	query, _, err := s.goqu.Update(s.tableVerbs).Set(
		goqu.Record{"source_json": string(sourceJSON)},
	).Where(goqu.I("entity_id").Eq(entityID), goqu.I("name").Eq(name)).ToSQL()
	if err != nil {
		return fmt.Errorf("build update verb query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("update verb %q on entity %d: %w", name, entityID, err)
	}

	return nil
}

// ─── Capability CRUD ───

func (s *SQLite) currentEncKey() []byte {
	s.encKeyMu.RLock()
	defer s.encKeyMu.RUnlock()
	return s.encKey
}

func (s *SQLite) GetCapabilities(ctx context.Context, ownerID int64) ([]entity.Capability, error) {
	query, _, err := s.goqu.From(s.tableCapabilities).
		Select("id", "owner_id", "type", "params_json").
		Where(goqu.I("owner_id").Eq(ownerID)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get capabilities query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get capabilities for owner %d: %w", ownerID, err)
	}
	defer rows.Close()

	encKey := s.currentEncKey()

	var result []entity.Capability
	for rows.Next() {
		var id, oid int64
		var typ, paramsJSON string
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

func scanCapability(id, ownerID int64, typ, paramsJSON string, encKey []byte) (*entity.Capability, error) {
	var params map[string]any
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		return nil, fmt.Errorf("unmarshal capability %d params: %w", id, err)
	}

	params, err := mcrypto.DecryptParams(params, encKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt capability %d params: %w", id, err)
	}

	return &entity.Capability{ID: id, OwnerID: ownerID, Type: typ, Params: params}, nil
}

func (s *SQLite) GetCapability(ctx context.Context, id int64) (*entity.Capability, error) {
	query, _, err := s.goqu.From(s.tableCapabilities).
		Select("id", "owner_id", "type", "params_json").
		Where(goqu.I("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get capability query: %w", err)
	}

	var cid, oid int64
	var typ, paramsJSON string
	err = s.db.QueryRowContext(ctx, query).Scan(&cid, &oid, &typ, &paramsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get capability %d: %w", id, err)
	}

	return scanCapability(cid, oid, typ, paramsJSON, s.currentEncKey())
}

func (s *SQLite) CreateCapability(ctx context.Context, ownerID int64, typ string, params map[string]any) (int64, error) {
	encrypted, err := mcrypto.EncryptParams(params, s.currentEncKey())
	if err != nil {
		return 0, fmt.Errorf("encrypt capability params: %w", err)
	}

	paramsJSON, err := json.Marshal(encrypted)
	if err != nil {
		return 0, fmt.Errorf("marshal capability params: %w", err)
	}

	query, _, err := s.goqu.Insert(s.tableCapabilities).Rows(
		goqu.Record{"owner_id": ownerID, "type": typ, "params_json": string(paramsJSON)},
	).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build insert capability query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("create capability: %w", err)
	}

	return res.LastInsertId()
}

func (s *SQLite) UpdateCapabilityOwner(ctx context.Context, id int64, newOwnerID int64) error {
	query, _, err := s.goqu.Update(s.tableCapabilities).Set(
		goqu.Record{"owner_id": newOwnerID},
	).Where(goqu.I("id").Eq(id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build give capability query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query)
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

func (s *SQLite) ScheduleTask(ctx context.Context, entityID int64, verb string, args []any, executeAt int64) (int64, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return 0, fmt.Errorf("marshal scheduled task args: %w", err)
	}

	query, _, err := s.goqu.Insert(s.tableScheduled).Rows(
		goqu.Record{
			"entity_id":  entityID,
			"verb":       verb,
			"args_json":  string(argsJSON),
			"execute_at": executeAt,
		},
	).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build schedule task query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("schedule task: %w", err)
	}

	return res.LastInsertId()
}

func (s *SQLite) PopDueTasks(ctx context.Context, now int64) ([]entity.ScheduledTask, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	selectQuery, _, err := s.goqu.From(s.tableScheduled).
		Select("id", "entity_id", "verb", "args_json", "execute_at").
		Where(goqu.I("execute_at").Lte(now)).
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
		var verb, argsJSON string
		if err := rows.Scan(&id, &eid, &verb, &argsJSON, &executeAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan scheduled task row: %w", err)
		}

		var args []any
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
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
		deleteQuery, _, err := s.goqu.Delete(s.tableScheduled).Where(goqu.I("id").In(ids...)).ToSQL()
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

func (s *SQLite) GetChannelMap(ctx context.Context, channelID string) (*entity.ChannelMap, error) {
	query, _, err := s.goqu.From(s.tableChannelMaps).
		Select("channel_id", "room_id").
		Where(goqu.I("channel_id").Eq(channelID)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get channel map query: %w", err)
	}

	var m entity.ChannelMap
	err = s.db.QueryRowContext(ctx, query).Scan(&m.ChannelID, &m.RoomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel map %q: %w", channelID, err)
	}

	return &m, nil
}

func (s *SQLite) SetChannelMap(ctx context.Context, channelID string, roomID int64) error {
	existing, err := s.GetChannelMap(ctx, channelID)
	if err != nil {
		return err
	}

	if existing == nil {
		query, _, err := s.goqu.Insert(s.tableChannelMaps).Rows(
			goqu.Record{"channel_id": channelID, "room_id": roomID},
		).ToSQL()
		if err != nil {
			return fmt.Errorf("build insert channel map query: %w", err)
		}
		_, err = s.db.ExecContext(ctx, query)
		return err
	}

	query, _, err := s.goqu.Update(s.tableChannelMaps).Set(
		goqu.Record{"room_id": roomID},
	).Where(goqu.I("channel_id").Eq(channelID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build update channel map query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLite) GetActiveSession(ctx context.Context, discordID, channelID string) (*entity.ActiveSession, error) {
	query, _, err := s.goqu.From(s.tableActiveSession).
		Select("discord_id", "channel_id", "entity_id").
		Where(goqu.I("discord_id").Eq(discordID), goqu.I("channel_id").Eq(channelID)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get active session query: %w", err)
	}

	var a entity.ActiveSession
	err = s.db.QueryRowContext(ctx, query).Scan(&a.DiscordID, &a.ChannelID, &a.EntityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session %q/%q: %w", discordID, channelID, err)
	}

	return &a, nil
}

func (s *SQLite) SetActiveSession(ctx context.Context, discordID, channelID string, entityID int64) error {
	existing, err := s.GetActiveSession(ctx, discordID, channelID)
	if err != nil {
		return err
	}

	if existing == nil {
		query, _, err := s.goqu.Insert(s.tableActiveSession).Rows(
			goqu.Record{"discord_id": discordID, "channel_id": channelID, "entity_id": entityID},
		).ToSQL()
		if err != nil {
			return fmt.Errorf("build insert active session query: %w", err)
		}
		_, err = s.db.ExecContext(ctx, query)
		return err
	}

	query, _, err := s.goqu.Update(s.tableActiveSession).Set(
		goqu.Record{"entity_id": entityID},
	).Where(goqu.I("discord_id").Eq(discordID), goqu.I("channel_id").Eq(channelID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build update active session query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query)
	return err
}
