package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medinsight/api/internal/report"
)

// Record is a stored report. Records are never updated.
type Record struct {
	ID                    string    `json:"id" yaml:"id"`
	CreatedAt             time.Time `json:"created_at" yaml:"created_at"`
	report.ClinicalReport `yaml:",inline"`
}

type Stats struct {
	Total      int            `json:"total_analyses" yaml:"total_analyses"`
	ByModality map[string]int `json:"by_modality" yaml:"by_modality"`
	BySeverity map[string]int `json:"by_severity" yaml:"by_severity"`
}

type ReportRepo struct {
	DB  *DB
	now func() time.Time
}

func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{DB: db, now: time.Now}
}

func (r *ReportRepo) Insert(ctx context.Context, rep report.ClinicalReport) (Record, error) {
	details, err := json.Marshal(nonNil(rep.Details))
	if err != nil {
		return Record{}, err
	}
	actions, err := json.Marshal(nonNil(rep.RecommendedActions))
	if err != nil {
		return Record{}, err
	}
	rec := Record{ID: uuid.New().String(), CreatedAt: r.now().UTC(), ClinicalReport: rep}

	q := r.DB.Rebind(`
insert into analyses(id, created_at, modality, severity, summary, details, recommended_actions, disclaimer, ocr_has_text, ocr_excerpt)
values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`)
	_, err = r.DB.ExecContext(ctx, q,
		rec.ID, r.DB.timeArg(rec.CreatedAt), string(rep.Modality), string(rep.Severity), rep.Summary,
		string(details), string(actions), rep.Disclaimer, rep.OCRHasText, rep.OCRExcerpt)
	if err != nil {
		return Record{}, fmt.Errorf("insert analysis: %w", err)
	}
	return rec, nil
}

// Recent returns up to limit records, newest first.
func (r *ReportRepo) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	q := r.DB.Rebind(`
select id, created_at, modality, severity, summary, details, recommended_actions, disclaimer, ocr_has_text, ocr_excerpt
from analyses
order by created_at desc
limit $1`)
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			rec              Record
			ts               dbTime
			modality, sev    string
			details, actions []byte
		)
		if err := rows.Scan(&rec.ID, &ts, &modality, &sev, &rec.Summary, &details, &actions,
			&rec.Disclaimer, &rec.OCRHasText, &rec.OCRExcerpt); err != nil {
			return nil, err
		}
		rec.CreatedAt = ts.t
		rec.Modality = report.Modality(modality)
		rec.Severity = report.Severity(sev)
		rec.Details = decodeList(details)
		rec.RecommendedActions = decodeList(actions)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats counts stored records; every modality and severity key is present.
func (r *ReportRepo) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByModality: map[string]int{}, BySeverity: map[string]int{}}
	for _, m := range report.Modalities {
		st.ByModality[string(m)] = 0
	}
	for _, s := range report.Severities {
		st.BySeverity[string(s)] = 0
	}

	if err := r.DB.QueryRowContext(ctx, `select count(*) from analyses`).Scan(&st.Total); err != nil {
		return Stats{}, fmt.Errorf("count analyses: %w", err)
	}
	if err := r.groupCount(ctx, "modality", st.ByModality); err != nil {
		return Stats{}, err
	}
	if err := r.groupCount(ctx, "severity", st.BySeverity); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (r *ReportRepo) groupCount(ctx context.Context, column string, into map[string]int) error {
	rows, err := r.DB.QueryContext(ctx, `select `+column+`, count(*) from analyses group by `+column)
	if err != nil {
		return fmt.Errorf("group by %s: %w", column, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] += n
	}
	return rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// decodeList treats broken JSON as an empty list.
func decodeList(b []byte) []string {
	out := []string{}
	if len(b) == 0 {
		return out
	}
	if err := json.Unmarshal(b, &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
