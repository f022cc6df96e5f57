package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"gasroute/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the schema if missing. Dev helper; production deployments
// run migrations out of band.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id UUID PRIMARY KEY,
    client_id TEXT NOT NULL,
    lat DOUBLE PRECISION NOT NULL,
    lng DOUBLE PRECISION NOT NULL,
    quantity INT NOT NULL,
    window_start TIMESTAMPTZ NOT NULL,
    window_end TIMESTAMPTZ NOT NULL,
    priority INT NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending',
    route_id UUID,
    driver_id UUID,
    vehicle_id UUID,
    version INT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS orders_status_window ON orders (status, window_start, window_end);
CREATE TABLE IF NOT EXISTS vehicles (
    id UUID PRIMARY KEY,
    capacity INT NOT NULL,
    lat DOUBLE PRECISION NOT NULL DEFAULT 0,
    lng DOUBLE PRECISION NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'available',
    version INT NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS drivers (
    id UUID PRIMARY KEY,
    shift_start TIMESTAMPTZ NOT NULL,
    shift_end TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL DEFAULT 'available',
    version INT NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS schedules (
    date DATE PRIMARY KEY,
    id UUID NOT NULL,
    body JSONB NOT NULL,
    committed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (p *Postgres) CreateOrders(ctx context.Context, in []model.OrderIn) ([]model.DeliveryOrder, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()
	out := make([]model.DeliveryOrder, 0, len(in))
	for _, o := range in {
		id := uuid.New().String()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO orders (id, client_id, lat, lng, quantity, window_start, window_end, priority, status, version)
             VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'pending',1)`,
			id, o.ClientID, o.Location.Lat, o.Location.Lng, o.Quantity, o.Window.Start, o.Window.End, o.Priority)
		if err != nil {
			return nil, err
		}
		out = append(out, model.DeliveryOrder{
			ID: id, ClientID: o.ClientID, Location: o.Location, Quantity: o.Quantity,
			Window: o.Window, Priority: o.Priority, Status: model.OrderPending, Version: 1,
		})
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Postgres) ListOrders(ctx context.Context, status, cursor string, limit int) ([]model.DeliveryOrder, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id::text, client_id, lat, lng, quantity, window_start, window_end, priority, status,
                 COALESCE(route_id::text,''), COALESCE(driver_id::text,''), COALESCE(vehicle_id::text,''), version
          FROM orders WHERE ($1 = '' OR status = $1) AND ($2 = '' OR id::text > $2)
          ORDER BY id::text LIMIT $3`
	rows, err := p.db.QueryContext(ctx, q, status, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.DeliveryOrder{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, o)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, rows.Err()
}

func scanOrder(rows *sql.Rows) (model.DeliveryOrder, error) {
	var o model.DeliveryOrder
	err := rows.Scan(&o.ID, &o.ClientID, &o.Location.Lat, &o.Location.Lng, &o.Quantity,
		&o.Window.Start, &o.Window.End, &o.Priority, &o.Status, &o.RouteID, &o.DriverID, &o.VehicleID, &o.Version)
	return o, err
}

func (p *Postgres) PendingOrders(ctx context.Context, from, to time.Time) ([]model.DeliveryOrder, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, client_id, lat, lng, quantity, window_start, window_end, priority, status,
                COALESCE(route_id::text,''), COALESCE(driver_id::text,''), COALESCE(vehicle_id::text,''), version
         FROM orders WHERE status='pending' AND window_start < $2 AND window_end > $1
         ORDER BY id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.DeliveryOrder{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateVehicles(ctx context.Context, in []model.VehicleIn) ([]model.Vehicle, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()
	out := make([]model.Vehicle, 0, len(in))
	for _, v := range in {
		id := uuid.New().String()
		var loc model.GeoPoint
		if v.Location != nil {
			loc = *v.Location
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vehicles (id, capacity, lat, lng, status, version) VALUES ($1,$2,$3,$4,'available',1)`,
			id, v.Capacity, loc.Lat, loc.Lng); err != nil {
			return nil, err
		}
		out = append(out, model.Vehicle{ID: id, Capacity: v.Capacity, Location: loc, Status: model.VehicleAvailable, Version: 1})
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Postgres) listVehicles(ctx context.Context, onlyAvailable bool) ([]model.Vehicle, error) {
	q := `SELECT id::text, capacity, lat, lng, status, version FROM vehicles ORDER BY id::text`
	if onlyAvailable {
		q = `SELECT id::text, capacity, lat, lng, status, version FROM vehicles WHERE status='available' ORDER BY id::text`
	}
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Vehicle{}
	for rows.Next() {
		var v model.Vehicle
		if err := rows.Scan(&v.ID, &v.Capacity, &v.Location.Lat, &v.Location.Lng, &v.Status, &v.Version); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	return p.listVehicles(ctx, false)
}

func (p *Postgres) AvailableVehicles(ctx context.Context) ([]model.Vehicle, error) {
	return p.listVehicles(ctx, true)
}

func (p *Postgres) CreateDrivers(ctx context.Context, in []model.DriverIn) ([]model.Driver, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()
	out := make([]model.Driver, 0, len(in))
	for _, d := range in {
		id := uuid.New().String()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO drivers (id, shift_start, shift_end, status, version) VALUES ($1,$2,$3,'available',1)`,
			id, d.ShiftStart, d.ShiftEnd); err != nil {
			return nil, err
		}
		out = append(out, model.Driver{ID: id, ShiftStart: d.ShiftStart, ShiftEnd: d.ShiftEnd, Status: model.DriverAvailable, Version: 1})
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Postgres) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, shift_start, shift_end, status, version FROM drivers ORDER BY id::text`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDrivers(rows)
}

func (p *Postgres) AvailableDrivers(ctx context.Context, from, to time.Time) ([]model.Driver, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, shift_start, shift_end, status, version FROM drivers
         WHERE status='available' AND shift_start < $2 AND shift_end > $1 ORDER BY id::text`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDrivers(rows)
}

func scanDrivers(rows *sql.Rows) ([]model.Driver, error) {
	out := []model.Driver{}
	for rows.Next() {
		var d model.Driver
		if err := rows.Scan(&d.ID, &d.ShiftStart, &d.ShiftEnd, &d.Status, &d.Version); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) GetSchedule(ctx context.Context, date string) (model.Schedule, error) {
	var body []byte
	err := p.db.QueryRowContext(ctx, `SELECT body FROM schedules WHERE date=$1`, date).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Schedule{}, ErrNotFound
	}
	if err != nil {
		return model.Schedule{}, err
	}
	var s model.Schedule
	if err := json.Unmarshal(body, &s); err != nil {
		return model.Schedule{}, err
	}
	return s, nil
}

// ApplySchedule runs the full commit in one transaction. Every UPDATE
// carries a status guard; a zero rows-affected count means some other writer
// got there first and the whole transaction rolls back.
func (p *Postgres) ApplySchedule(ctx context.Context, sched model.Schedule) (model.CommitResult, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.CommitResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	scheduled := 0
	for _, rt := range sched.Routes {
		if err := guardedUpdate(ctx, tx,
			`UPDATE vehicles SET status='in_use', version=version+1 WHERE id=$1 AND status='available'`,
			rt.VehicleID); err != nil {
			return model.CommitResult{}, err
		}
		if err := guardedUpdate(ctx, tx,
			`UPDATE drivers SET status='assigned', version=version+1 WHERE id=$1 AND status='available'`,
			rt.DriverID); err != nil {
			return model.CommitResult{}, err
		}
		for _, st := range rt.Stops {
			if err := guardedUpdate(ctx, tx,
				`UPDATE orders SET status='scheduled', route_id=$2, driver_id=$3, vehicle_id=$4, version=version+1
                 WHERE id=$1 AND status='pending'`,
				st.OrderID, rt.ID, rt.DriverID, rt.VehicleID); err != nil {
				return model.CommitResult{}, err
			}
			scheduled++
		}
	}

	sched.Committed = true
	body, err := json.Marshal(sched)
	if err != nil {
		return model.CommitResult{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schedules (date, id, body) VALUES ($1,$2,$3)
         ON CONFLICT (date) DO UPDATE SET id=EXCLUDED.id, body=EXCLUDED.body, committed_at=now()`,
		sched.Date, sched.ID, body); err != nil {
		return model.CommitResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.CommitResult{}, err
	}
	return model.CommitResult{
		ScheduleID:      sched.ID,
		Date:            sched.Date,
		RoutesCreated:   len(sched.Routes),
		OrdersScheduled: scheduled,
		CommittedAt:     time.Now().UTC(),
	}, nil
}

func guardedUpdate(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrVersionConflict
	}
	return nil
}
