package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"ota_reviews/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

type Repo struct{ db *sql.DB }

var _ domain.ReviewRepository = (*Repo)(nil)

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// UpsertReviews writes the canonical review set in one batch keyed by
// fingerprint. Re-running a hotel overwrites analysis fields and fills
// in anything a later fetch learned (rating, timestamp) without ever
// nulling an already known value.
func (r *Repo) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	if len(rs) == 0 {
		return nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*14)
	for _, rv := range rs {
		var kw any
		if len(rv.Keywords) > 0 {
			if b, err := json.Marshal(rv.Keywords); err == nil {
				kw = string(b)
			}
		}
		values = append(values, "(?,?,?,?,?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			rv.ID,
			rv.HotelID,
			string(rv.Source),
			valStr(rv.Title),
			rv.Text,
			valStr(rv.Reviewer),
			valStr(rv.TripType),
			valStr(rv.Lang),
			valF64(rv.Rating),
			rv.PostedAt, // *time.Time, nil maps to NULL
			valF64(rv.SentimentScore),
			valStr(string(rv.SentimentLabel)),
			valF64(rv.Confidence),
			kw,
		)
	}
	sqlStr := insertReviewsPrefix + strings.Join(values, ",") + insertReviewsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// LogRun records the run header and one row per source outcome in a
// single transaction.
func (r *Repo) LogRun(ctx context.Context, res *domain.AggregationResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertRunSQL,
		res.RunID, res.HotelID, res.FetchedAt.UTC(), len(res.Reviews)); err != nil {
		return err
	}
	for _, o := range res.Outcomes {
		var errText any
		if o.Err != nil {
			errText = o.Err.Error()
		}
		if _, err := tx.ExecContext(ctx, insertOutcomeSQL,
			res.RunID, string(o.Source), string(o.Status),
			o.Count, o.Dropped, errText, o.Elapsed.Milliseconds()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) ListReviews(ctx context.Context, hotelID string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	limit := pg.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, hotelID, limit)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	defer rows.Close()

	var page domain.ReviewsPage
	for rows.Next() {
		var (
			rv       domain.Review
			title    sql.NullString
			reviewer sql.NullString
			tripType sql.NullString
			lang     sql.NullString
			rating   sql.NullFloat64
			postedAt sql.NullTime
			score    sql.NullFloat64
			label    sql.NullString
			conf     sql.NullFloat64
			kwJSON   sql.NullString
		)
		if err := rows.Scan(
			&rv.ID, &rv.Source, &title, &rv.Text, &reviewer, &tripType, &lang,
			&rating, &postedAt, &score, &label, &conf, &kwJSON,
		); err != nil {
			return domain.ReviewsPage{}, err
		}
		rv.HotelID = hotelID
		rv.Title = title.String
		rv.Reviewer = reviewer.String
		rv.TripType = tripType.String
		rv.Lang = lang.String
		if rating.Valid {
			v := rating.Float64
			rv.Rating = &v
		}
		if postedAt.Valid {
			t := postedAt.Time.UTC()
			rv.PostedAt = &t
		}
		if score.Valid {
			v := score.Float64
			rv.SentimentScore = &v
		}
		rv.SentimentLabel = domain.SentimentLabel(label.String)
		if conf.Valid {
			v := conf.Float64
			rv.Confidence = &v
		}
		if kwJSON.Valid && kwJSON.String != "" {
			_ = json.Unmarshal([]byte(kwJSON.String), &rv.Keywords)
		}
		page.Items = append(page.Items, rv)
	}
	if err := rows.Err(); err != nil {
		return domain.ReviewsPage{}, err
	}
	if len(page.Items) == 0 {
		return domain.ReviewsPage{}, domain.ErrNotFound
	}
	return page, nil
}
