package mysql

// Note: `text` is reserved; keep it quoted everywhere.
const insertReviewsPrefix = "INSERT INTO reviews\n" +
	"  (id, hotel_id, source, title, `text`, reviewer, trip_type, lang, rating, posted_at, sentiment_score, sentiment_label, confidence, keywords)\n" +
	"VALUES "

// Use VALUES(col) for broad compatibility; COALESCE keeps old value if new is NULL.
const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  source          = VALUES(source),\n" +
	"  title           = COALESCE(VALUES(title), reviews.title),\n" +
	"  `text`          = VALUES(`text`),\n" +
	"  reviewer        = COALESCE(VALUES(reviewer), reviews.reviewer),\n" +
	"  trip_type       = COALESCE(VALUES(trip_type), reviews.trip_type),\n" +
	"  lang            = COALESCE(VALUES(lang), reviews.lang),\n" +
	"  rating          = COALESCE(VALUES(rating), reviews.rating),\n" +
	"  posted_at       = COALESCE(VALUES(posted_at), reviews.posted_at),\n" +
	"  sentiment_score = COALESCE(VALUES(sentiment_score), reviews.sentiment_score),\n" +
	"  sentiment_label = COALESCE(VALUES(sentiment_label), reviews.sentiment_label),\n" +
	"  confidence      = COALESCE(VALUES(confidence), reviews.confidence),\n" +
	"  keywords        = COALESCE(VALUES(keywords), reviews.keywords),\n" +
	"  updated_at      = CURRENT_TIMESTAMP\n"

const insertRunSQL = `
INSERT INTO runs (run_id, hotel_id, fetched_at, review_count)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  fetched_at   = VALUES(fetched_at),
  review_count = VALUES(review_count)
`

const insertOutcomeSQL = `
INSERT INTO run_outcomes (run_id, source, status, record_count, dropped, error, elapsed_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  status       = VALUES(status),
  record_count = VALUES(record_count),
  dropped      = VALUES(dropped),
  error        = VALUES(error),
  elapsed_ms   = VALUES(elapsed_ms)
`

// Unknown posting times sort last so "newest first" stays meaningful.
const listReviewsSQL = `
SELECT
  id, source, title, ` + "`text`" + `, reviewer, trip_type, lang,
  rating, posted_at, sentiment_score, sentiment_label, confidence, keywords
FROM reviews
WHERE hotel_id = ?
ORDER BY posted_at IS NULL, posted_at DESC, id
LIMIT ?
`
