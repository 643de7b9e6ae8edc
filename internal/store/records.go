package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/arek-soma/sfxvault/internal/model"
)

const recordColumns = `
	id, path, COALESCE(content_hash, ''), filename, COALESCE(format, ''), file_size,
	COALESCE(duration_s, 0), COALESCE(sample_rate_hz, 0), COALESCE(bit_depth, 0),
	COALESCE(channels, 0), COALESCE(bitrate_kbps, 0),
	COALESCE(title, ''), COALESCE(artist, ''), COALESCE(album, ''), COALESCE(genre, ''),
	COALESCE(year, 0), COALESCE(track_number, 0), COALESCE(comment, ''), COALESCE(description, ''),
	translation_status, COALESCE(translated_name, ''),
	mtime_unix, created_at, updated_at
`

func scanRecord(row interface{ Scan(...any) error }) (*model.AudioRecord, error) {
	r := &model.AudioRecord{}
	var sampleRate, bitDepth, channels, bitrate, year, track int64
	if err := row.Scan(
		&r.ID, &r.Path, &r.ContentHash, &r.Filename, &r.Format, &r.FileSize,
		&r.DurationS, &sampleRate, &bitDepth, &channels, &bitrate,
		&r.Title, &r.Artist, &r.Album, &r.Genre,
		&year, &track, &r.Comment, &r.Description,
		&r.TranslationStatus, &r.TranslatedName,
		&r.MtimeUnix, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.SampleRateHz = uint32(sampleRate)
	r.BitDepth = uint8(bitDepth)
	r.Channels = uint8(channels)
	r.BitrateKbps = uint32(bitrate)
	r.Year = int(year)
	r.TrackNumber = int(track)
	return r, nil
}

// UpsertRecord inserts a new record or updates the existing one at the same
// path, preserving path uniqueness (spec SS3 invariant).
func (s *Store) UpsertRecord(r *model.AudioRecord) error {
	var contentHash any
	if r.ContentHash != "" {
		contentHash = r.ContentHash
	}

	_, err := s.db.Exec(`
		INSERT INTO records (
			path, content_hash, filename, format, file_size,
			duration_s, sample_rate_hz, bit_depth, channels, bitrate_kbps,
			title, artist, album, genre, year, track_number, comment, description,
			translation_status, translated_name, mtime_unix, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			filename = excluded.filename,
			format = excluded.format,
			file_size = excluded.file_size,
			duration_s = excluded.duration_s,
			sample_rate_hz = excluded.sample_rate_hz,
			bit_depth = excluded.bit_depth,
			channels = excluded.channels,
			bitrate_kbps = excluded.bitrate_kbps,
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			genre = excluded.genre,
			year = excluded.year,
			track_number = excluded.track_number,
			comment = excluded.comment,
			description = excluded.description,
			mtime_unix = excluded.mtime_unix,
			updated_at = CURRENT_TIMESTAMP
	`,
		r.Path, contentHash, r.Filename, r.Format, r.FileSize,
		r.DurationS, r.SampleRateHz, r.BitDepth, r.Channels, r.BitrateKbps,
		r.Title, r.Artist, r.Album, r.Genre, r.Year, r.TrackNumber, r.Comment, r.Description,
		r.TranslationStatus, r.TranslatedName, r.MtimeUnix,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}

	// The id is resolved by path: after an ON CONFLICT update, LastInsertId
	// still reports the rowid of an earlier, unrelated insert.
	if r.ID == 0 {
		if err := s.db.QueryRow("SELECT id FROM records WHERE path = ?", r.Path).Scan(&r.ID); err != nil {
			return fmt.Errorf("failed to resolve record id: %w", err)
		}
	}

	if err := s.replaceTags(r.ID, r.Tags); err != nil {
		return err
	}

	s.broadcast("records")
	return nil
}

func (s *Store) replaceTags(recordID int64, tags []string) error {
	return s.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM record_tags WHERE record_id = ?", recordID); err != nil {
			return fmt.Errorf("failed to clear tags: %w", err)
		}
		stmt, err := tx.Prepare("INSERT OR IGNORE INTO record_tags (record_id, tag) VALUES (?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, tag := range tags {
			if tag == "" {
				continue
			}
			if _, err := stmt.Exec(recordID, tag); err != nil {
				return fmt.Errorf("failed to insert tag %q: %w", tag, err)
			}
		}
		return nil
	})
}

// GetByPath retrieves a record by its canonicalized absolute path.
func (s *Store) GetByPath(path string) (*model.AudioRecord, error) {
	row := s.db.QueryRow(fmt.Sprintf("SELECT %s FROM records WHERE path = ?", recordColumns), path)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	r.Tags, err = s.tagsFor(r.ID)
	return r, err
}

// GetByID retrieves a record by its registry id.
func (s *Store) GetByID(id int64) (*model.AudioRecord, error) {
	row := s.db.QueryRow(fmt.Sprintf("SELECT %s FROM records WHERE id = ?", recordColumns), id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	r.Tags, err = s.tagsFor(r.ID)
	return r, err
}

func (s *Store) tagsFor(recordID int64) ([]string, error) {
	rows, err := s.db.Query("SELECT tag FROM record_tags WHERE record_id = ? ORDER BY tag", recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// ListOptions selects a page of records matching a raw SQL predicate built
// by the search engine (C6) from the parsed query AST plus filter struct.
type ListOptions struct {
	Where  string // SQL boolean expression over the `records` table, or "" for none
	Args   []any
	Limit  int
	Offset int
}

// List executes a filtered, paginated query and reports the total match
// count ignoring limit/offset (spec SS4.6 step 3).
func (s *Store) List(opts ListOptions) ([]*model.AudioRecord, int, error) {
	where := "1=1"
	if opts.Where != "" {
		where = opts.Where
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM records WHERE %s", where)
	if err := s.db.QueryRow(countQuery, opts.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = total
		if limit == 0 {
			limit = 1
		}
	}
	query := fmt.Sprintf("SELECT %s FROM records WHERE %s ORDER BY id LIMIT ? OFFSET ?", recordColumns, where)
	args := append(append([]any{}, opts.Args...), limit, opts.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*model.AudioRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, r := range records {
		r.Tags, err = s.tagsFor(r.ID)
		if err != nil {
			return nil, 0, err
		}
	}

	return records, total, nil
}

// AllPathsAndWitnesses returns every indexed path with its last-known
// (mtime, size) witness, used by the metadata cache for cold-start warmup.
func (s *Store) AllPathsAndWitnesses() (map[string][2]int64, error) {
	rows, err := s.db.Query("SELECT path, mtime_unix, file_size FROM records")
	if err != nil {
		return nil, fmt.Errorf("failed to list witnesses: %w", err)
	}
	defer rows.Close()

	out := make(map[string][2]int64)
	for rows.Next() {
		var path string
		var mtime, size int64
		if err := rows.Scan(&path, &mtime, &size); err != nil {
			return nil, err
		}
		out[path] = [2]int64{mtime, size}
	}
	return out, rows.Err()
}

// UpdateTranslation records the outcome of a batch translation run for one record.
func (s *Store) UpdateTranslation(recordID int64, status model.TranslationStatus, translatedName string) error {
	_, err := s.db.Exec(`
		UPDATE records SET translation_status = ?, translated_name = ?, updated_at = ?
		WHERE id = ?
	`, status, translatedName, time.Now(), recordID)
	if err != nil {
		return fmt.Errorf("failed to update translation: %w", err)
	}
	s.broadcast("records")
	return nil
}

// DeleteRecord removes a record and its dependent rows (tags, embedding).
// The dependent rows are deleted explicitly, since the connection does not
// enable SQLite's foreign-key cascades.
func (s *Store) DeleteRecord(recordID int64) error {
	err := s.Transaction(func(tx *sql.Tx) error {
		for _, q := range []string{
			"DELETE FROM record_tags WHERE record_id = ?",
			"DELETE FROM embeddings WHERE record_id = ?",
			"DELETE FROM project_members WHERE record_id = ?",
			"DELETE FROM records WHERE id = ?",
		} {
			if _, err := tx.Exec(q, recordID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	s.broadcast("records")
	return nil
}

// CountRecords returns the number of records matching a raw SQL predicate,
// or every record when where is "". Used by report generation, which only
// needs totals and has no business paging through rows.
func (s *Store) CountRecords(where string, args ...any) (int, error) {
	if where == "" {
		where = "1=1"
	}
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM records WHERE %s", where)
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// CountEmbeddings returns the number of records with a computed embedding,
// used to report semantic-index coverage.
func (s *Store) CountEmbeddings() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM embeddings").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return n, nil
}
