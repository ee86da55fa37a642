package db

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quissme/resonance/internal/api"
)

// SQLiteStore implements api.Store on a sqlite database. Nested structures
// (questions, submissions, results, the garden) are stored as JSON columns;
// everything the gate and the wheel filter on stays relational.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

var _ api.Store = (*SQLiteStore)(nil)

// Open opens the sqlite database at path and applies migrations.
func Open(path, migrationsDir string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// sqlite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent submits.
	conn.SetMaxOpenConns(1)
	if err := RunMigrations(conn, migrationsDir); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func encodeJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("sqlite: encode json: %v", err)
		return ""
	}
	// typed nil pointers marshal to "null"; keep the empty-column convention
	if string(b) == "null" {
		return ""
	}
	return string(b)
}

func decodeJSON(s string, v any) {
	if s == "" {
		return
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		log.Printf("sqlite: decode json: %v", err)
	}
}

// --- quizzes ---

func (s *SQLiteStore) AddQuiz(q *api.Quiz) {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO quizzes (id, hidden_cluster, facet_label, tone, questions) VALUES (?, ?, ?, ?, ?)`,
		q.ID, q.HiddenCluster, encodeJSON(q.FacetLabel), q.Tone, encodeJSON(q.Questions),
	)
	if err != nil {
		log.Printf("sqlite: add quiz %s: %v", q.ID, err)
	}
}

func scanQuiz(row interface{ Scan(...any) error }) (*api.Quiz, error) {
	var q api.Quiz
	var facets, questions string
	if err := row.Scan(&q.ID, &q.HiddenCluster, &facets, &q.Tone, &questions); err != nil {
		return nil, err
	}
	decodeJSON(facets, &q.FacetLabel)
	decodeJSON(questions, &q.Questions)
	return &q, nil
}

func (s *SQLiteStore) GetQuiz(id string) *api.Quiz {
	row := s.db.QueryRow(`SELECT id, hidden_cluster, facet_label, tone, questions FROM quizzes WHERE id = ?`, id)
	q, err := scanQuiz(row)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("sqlite: get quiz %s: %v", id, err)
		}
		return nil
	}
	return q
}

func (s *SQLiteStore) ListQuizzes() []*api.Quiz {
	rows, err := s.db.Query(`SELECT id, hidden_cluster, facet_label, tone, questions FROM quizzes ORDER BY id`)
	if err != nil {
		log.Printf("sqlite: list quizzes: %v", err)
		return nil
	}
	defer rows.Close()
	var out []*api.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			log.Printf("sqlite: scan quiz: %v", err)
			continue
		}
		out = append(out, q)
	}
	return out
}

// --- users ---

func (s *SQLiteStore) AddUser(u *api.User) {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO users
		 (id, name, birth_date, birth_time, birth_location, astro_data, invite_code, couple_id, weekly_activations, week_start, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.BirthDate, u.BirthTime, u.BirthLocation,
		encodeJSON(u.AstroData), u.InviteCode, u.CoupleID, u.WeeklyActivations, u.WeekStart, u.CreatedAt,
	)
	if err != nil {
		log.Printf("sqlite: add user %s: %v", u.ID, err)
	}
}

func scanUser(row interface{ Scan(...any) error }) (*api.User, error) {
	var u api.User
	var astro string
	var weekStart sql.NullTime
	if err := row.Scan(&u.ID, &u.Name, &u.BirthDate, &u.BirthTime, &u.BirthLocation,
		&astro, &u.InviteCode, &u.CoupleID, &u.WeeklyActivations, &weekStart, &u.CreatedAt); err != nil {
		return nil, err
	}
	decodeJSON(astro, &u.AstroData)
	if weekStart.Valid {
		u.WeekStart = weekStart.Time
	}
	return &u, nil
}

const userColumns = `id, name, birth_date, birth_time, birth_location, astro_data, invite_code, couple_id, weekly_activations, week_start, created_at`

func (s *SQLiteStore) GetUser(id string) *api.User {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("sqlite: get user %s: %v", id, err)
		}
		return nil
	}
	return u
}

func (s *SQLiteStore) FindUserByInviteCode(code string) *api.User {
	row := s.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE invite_code != '' AND invite_code = ? COLLATE NOCASE`, code)
	u, err := scanUser(row)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("sqlite: find user by invite code: %v", err)
		}
		return nil
	}
	return u
}

func (s *SQLiteStore) execAffected(query string, args ...any) bool {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		log.Printf("sqlite: exec: %v", err)
		return false
	}
	n, err := res.RowsAffected()
	if err != nil {
		log.Printf("sqlite: rows affected: %v", err)
		return false
	}
	return n > 0
}

func (s *SQLiteStore) SetUserCouple(userID, coupleID string) bool {
	return s.execAffected(`UPDATE users SET couple_id = ? WHERE id = ?`, coupleID, userID)
}

func (s *SQLiteStore) ResetWeeklyWindow(userID string, weekStart time.Time) bool {
	return s.execAffected(`UPDATE users SET weekly_activations = 0, week_start = ? WHERE id = ?`, weekStart, userID)
}

func (s *SQLiteStore) IncrementWeeklyActivations(userID string) bool {
	return s.execAffected(`UPDATE users SET weekly_activations = weekly_activations + 1 WHERE id = ?`, userID)
}

func (s *SQLiteStore) DeleteUser(id string) bool {
	return s.execAffected(`DELETE FROM users WHERE id = ?`, id)
}

// --- couples ---

func (s *SQLiteStore) AddCouple(c *api.Couple) {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO couples (id, user_a_id, user_b_id, interpretation, garden, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserAID, c.UserBID, c.Interpretation, encodeJSON(c.Garden), c.CreatedAt,
	)
	if err != nil {
		log.Printf("sqlite: add couple %s: %v", c.ID, err)
	}
}

func (s *SQLiteStore) GetCouple(id string) *api.Couple {
	row := s.db.QueryRow(`SELECT id, user_a_id, user_b_id, interpretation, garden, created_at FROM couples WHERE id = ?`, id)
	var c api.Couple
	var garden string
	if err := row.Scan(&c.ID, &c.UserAID, &c.UserBID, &c.Interpretation, &garden, &c.CreatedAt); err != nil {
		if err != sql.ErrNoRows {
			log.Printf("sqlite: get couple %s: %v", id, err)
		}
		return nil
	}
	if garden != "" {
		c.Garden = &api.Garden{}
		decodeJSON(garden, c.Garden)
	}
	return &c
}

func (s *SQLiteStore) AppendGardenItem(coupleID string, item api.GardenItem) bool {
	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("sqlite: begin: %v", err)
		return false
	}
	defer tx.Rollback()

	var garden string
	if err := tx.QueryRow(`SELECT garden FROM couples WHERE id = ?`, coupleID).Scan(&garden); err != nil {
		if err != sql.ErrNoRows {
			log.Printf("sqlite: read garden %s: %v", coupleID, err)
		}
		return false
	}
	g := &api.Garden{Items: []api.GardenItem{}, Level: 1}
	if garden != "" {
		decodeJSON(garden, g)
	}
	g.Items = append(g.Items, item)
	if _, err := tx.Exec(`UPDATE couples SET garden = ? WHERE id = ?`, encodeJSON(g), coupleID); err != nil {
		log.Printf("sqlite: update garden %s: %v", coupleID, err)
		return false
	}
	if err := tx.Commit(); err != nil {
		log.Printf("sqlite: commit garden %s: %v", coupleID, err)
		return false
	}
	return true
}

// --- cycles ---

const cycleColumns = `id, couple_id, quiz_id, state, activated_by, completed_by, submission_a, submission_b, result, zone, buff, reward_choices, created_at`

func (s *SQLiteStore) AddCycle(c *api.Cycle) {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO cycles (`+cycleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CoupleID, c.QuizID, c.State, c.ActivatedBy,
		encodeJSON(c.CompletedBy), encodeJSON(c.SubmissionA), encodeJSON(c.SubmissionB),
		encodeJSON(c.Result), c.Zone, encodeJSON(c.Buff), encodeJSON(c.RewardChoices), c.CreatedAt,
	)
	if err != nil {
		log.Printf("sqlite: add cycle %s: %v", c.ID, err)
	}
}

func scanCycle(row interface{ Scan(...any) error }) (*api.Cycle, error) {
	var c api.Cycle
	var completedBy, subA, subB, result, buff, rewards string
	if err := row.Scan(&c.ID, &c.CoupleID, &c.QuizID, &c.State, &c.ActivatedBy,
		&completedBy, &subA, &subB, &result, &c.Zone, &buff, &rewards, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.CompletedBy = []string{}
	decodeJSON(completedBy, &c.CompletedBy)
	if subA != "" {
		c.SubmissionA = &api.Submission{}
		decodeJSON(subA, c.SubmissionA)
	}
	if subB != "" {
		c.SubmissionB = &api.Submission{}
		decodeJSON(subB, c.SubmissionB)
	}
	if result != "" {
		c.Result = &api.CycleResult{}
		decodeJSON(result, c.Result)
	}
	if buff != "" {
		c.Buff = &api.Buff{}
		decodeJSON(buff, c.Buff)
	}
	decodeJSON(rewards, &c.RewardChoices)
	return &c, nil
}

func (s *SQLiteStore) GetCycle(id string) *api.Cycle {
	row := s.db.QueryRow(`SELECT `+cycleColumns+` FROM cycles WHERE id = ?`, id)
	c, err := scanCycle(row)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("sqlite: get cycle %s: %v", id, err)
		}
		return nil
	}
	return c
}

func (s *SQLiteStore) ListCyclesByCouple(coupleID string) []*api.Cycle {
	rows, err := s.db.Query(`SELECT `+cycleColumns+` FROM cycles WHERE couple_id = ? ORDER BY created_at, id`, coupleID)
	if err != nil {
		log.Printf("sqlite: list cycles for %s: %v", coupleID, err)
		return nil
	}
	defer rows.Close()
	out := []*api.Cycle{}
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			log.Printf("sqlite: scan cycle: %v", err)
			continue
		}
		out = append(out, c)
	}
	return out
}

// UpdateCycleIf applies the update only when the stored state still equals
// fromState, reporting via RowsAffected whether this writer won.
func (s *SQLiteStore) UpdateCycleIf(c *api.Cycle, fromState string) bool {
	return s.execAffected(
		`UPDATE cycles SET state = ?, completed_by = ?, submission_a = ?, submission_b = ?, result = ?, zone = ?, buff = ?, reward_choices = ?
		 WHERE id = ? AND state = ?`,
		c.State, encodeJSON(c.CompletedBy), encodeJSON(c.SubmissionA), encodeJSON(c.SubmissionB),
		encodeJSON(c.Result), c.Zone, encodeJSON(c.Buff), encodeJSON(c.RewardChoices),
		c.ID, fromState,
	)
}

// --- audit ---

func (s *SQLiteStore) AddAudit(e api.AuditEntry) {
	_, err := s.db.Exec(
		`INSERT INTO audit_log (at, actor, action, target, note) VALUES (?, ?, ?, ?, ?)`,
		e.Time, e.Actor, e.Action, e.Target, e.Note,
	)
	if err != nil {
		log.Printf("sqlite: add audit: %v", err)
	}
}

func (s *SQLiteStore) ListAudit() []api.AuditEntry {
	rows, err := s.db.Query(`SELECT at, actor, action, target, note FROM audit_log ORDER BY id`)
	if err != nil {
		log.Printf("sqlite: list audit: %v", err)
		return nil
	}
	defer rows.Close()
	var out []api.AuditEntry
	for rows.Next() {
		var e api.AuditEntry
		if err := rows.Scan(&e.Time, &e.Actor, &e.Action, &e.Target, &e.Note); err != nil {
			log.Printf("sqlite: scan audit: %v", err)
			continue
		}
		out = append(out, e)
	}
	return out
}
