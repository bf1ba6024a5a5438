package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gatherly/apiserver/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. The RSVP set lives in a jsonb
// array column; both mutations are single-statement conditional updates, so
// concurrent RSVP actions on one event serialize inside the database.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const eventColumns = `id, name, info, location, start_at, end_at, rsvp, status, created_by, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*Event, error) {
	var (
		e       Event
		rsvpRaw []byte
	)
	err := row.Scan(&e.ID, &e.Name, &e.Info, &e.Location, &e.StartAt, &e.EndAt,
		&rsvpRaw, &e.Status, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e.RSVP = []string{}
	if len(rsvpRaw) > 0 {
		if err := json.Unmarshal(rsvpRaw, &e.RSVP); err != nil {
			return nil, fmt.Errorf("decode rsvp: %w", err)
		}
	}
	return &e, nil
}

func (s *PGStore) Create(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	rsvp, err := json.Marshal(e.RSVP)
	if err != nil {
		return err
	}
	row := s.db.QueryRowContext(ctx,
		`insert into events(id, name, info, location, start_at, end_at, rsvp, status, created_by)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 returning `+eventColumns,
		e.ID, e.Name, e.Info, e.Location, e.StartAt, e.EndAt, rsvp, e.Status, e.CreatedBy,
	)
	created, err := scanEvent(row)
	if err != nil {
		return err
	}
	*e = *created
	return nil
}

func (s *PGStore) Find(ctx context.Context, id string) (*Event, error) {
	return scanEvent(s.db.QueryRowContext(ctx,
		`select `+eventColumns+` from events where id=$1`, id))
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]*Event, error) {
	query := `select ` + eventColumns + ` from events`
	var (
		conds []string
		args  []any
	)
	switch {
	case f.From != nil && f.To != nil:
		// both bounds: the event must lie fully inside the window
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("start_at >= $%d", len(args)))
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("end_at < $%d", len(args)))
	case f.From != nil:
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("end_at >= $%d", len(args)))
	case f.To != nil:
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("start_at < $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		idx := len(args)
		conds = append(conds, fmt.Sprintf("(name ilike $%d or info ilike $%d or location ilike $%d)", idx, idx, idx))
	}
	if len(conds) > 0 {
		query += " where " + strings.Join(conds, " and ")
	}
	query += " order by start_at asc"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" limit $%d", len(args))
		page := f.Page
		if page < 1 {
			page = 1
		}
		args = append(args, (page-1)*f.Limit)
		query += fmt.Sprintf(" offset $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, id string, upd Update) (*Event, error) {
	sets := []string{"updated_at=now()"}
	var args []any
	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if upd.Name != nil {
		appendSet("name", *upd.Name)
	}
	if upd.Info != nil {
		appendSet("info", *upd.Info)
	}
	if upd.Location != nil {
		appendSet("location", *upd.Location)
	}
	if upd.StartAt != nil {
		appendSet("start_at", *upd.StartAt)
	}
	if upd.EndAt != nil {
		appendSet("end_at", *upd.EndAt)
	}
	if upd.Status != nil {
		appendSet("status", *upd.Status)
	}
	args = append(args, id)
	return scanEvent(s.db.QueryRowContext(ctx,
		fmt.Sprintf(`update events set %s where id=$%d returning %s`,
			strings.Join(sets, ", "), len(args), eventColumns),
		args...,
	))
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from events where id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) AddRSVP(ctx context.Context, eventID, userID string) (*Event, error) {
	return scanEvent(s.db.QueryRowContext(ctx,
		`update events
		 set rsvp = case when rsvp @> to_jsonb($2::text) then rsvp else rsvp || to_jsonb($2::text) end,
		     updated_at = now()
		 where id=$1
		 returning `+eventColumns,
		eventID, userID))
}

func (s *PGStore) RemoveRSVP(ctx context.Context, eventID, userID string) (*Event, error) {
	return scanEvent(s.db.QueryRowContext(ctx,
		`update events
		 set rsvp = rsvp - $2,
		     updated_at = now()
		 where id=$1
		 returning `+eventColumns,
		eventID, userID))
}

func (s *PGStore) CountByOwner(ctx context.Context, eventID, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from events where id=$1 and created_by=$2`, eventID, ownerID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
