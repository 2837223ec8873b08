/*
Copyright (C) 2024  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package rosbag2

import (
	"context"
	"database/sql"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ros2go/rosbags/rosbagerrors"
)

const shardSchema = `
CREATE TABLE topics(
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	serialization_format TEXT NOT NULL,
	qos_profiles TEXT NOT NULL
);
CREATE TABLE messages(
	id INTEGER PRIMARY KEY,
	topic_id INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	data BLOB NOT NULL
);
CREATE INDEX messages_timestamp_idx ON messages(timestamp ASC);
`

// shard wraps one table-store file backing a bag-v2 directory. Readers open
// it read-only/immutable; writers hold a single exclusive connection, per
// spec.md §5.
type shard struct {
	path string
	db   *sql.DB
}

func openShardReadOnly(path string) (*shard, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &rosbagerrors.UsageError{Message: "bag-v2 shard does not exist: " + path}
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, &rosbagerrors.IoError{Op: "open bag-v2 shard", Cause: err}
	}
	db.SetMaxOpenConns(1)
	return &shard{path: path, db: db}, nil
}

func createShard(path string) (*shard, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, &rosbagerrors.UsageError{Message: "refusing to overwrite existing bag-v2 shard: " + path}
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=rwc")
	if err != nil {
		return nil, &rosbagerrors.IoError{Op: "create bag-v2 shard", Cause: err}
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(shardSchema); err != nil {
		db.Close()
		return nil, &rosbagerrors.IoError{Op: "initialize bag-v2 shard schema", Cause: err}
	}
	return &shard{path: path, db: db}, nil
}

func (s *shard) close() error {
	if s.db == nil {
		return nil
	}
	_, _ = s.db.Exec("PRAGMA optimize")
	err := s.db.Close()
	s.db = nil
	return err
}

type shardTopic struct {
	localID       int64
	name          string
	msgtype       string
	serialization string
	qosProfiles   string
	messageCount  int
}

func (s *shard) topicsWithMessageCount(ctx context.Context) ([]shardTopic, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT topics.id, topics.name, topics.type, topics.serialization_format, topics.qos_profiles,
       (SELECT COUNT(*) FROM messages WHERE messages.topic_id = topics.id)
FROM topics`)
	if err != nil {
		return nil, &rosbagerrors.IoError{Op: "query bag-v2 topics", Cause: err}
	}
	defer rows.Close()

	var out []shardTopic
	for rows.Next() {
		var t shardTopic
		if err := rows.Scan(&t.localID, &t.name, &t.msgtype, &t.serialization, &t.qosProfiles, &t.messageCount); err != nil {
			return nil, &rosbagerrors.IoError{Op: "scan bag-v2 topic row", Cause: err}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *shard) insertTopic(ctx context.Context, name, msgtype, serialization, qosProfiles string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO topics(name, type, serialization_format, qos_profiles) VALUES (?, ?, ?, ?)`,
		name, msgtype, serialization, qosProfiles)
	if err != nil {
		return 0, &rosbagerrors.IoError{Op: "insert bag-v2 topic", Cause: err}
	}
	return res.LastInsertId()
}

func (s *shard) insertMessage(ctx context.Context, topicID int64, timestamp int64, data []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO messages(topic_id, timestamp, data) VALUES (?, ?, ?)`, topicID, timestamp, data)
	if err != nil {
		return &rosbagerrors.IoError{Op: "insert bag-v2 message", Cause: err}
	}
	return nil
}

// messageStats returns (min timestamp, max timestamp, count) over all
// messages in the shard; ok is false when the shard has no messages.
func (s *shard) messageStats(ctx context.Context) (minT, maxT int64, count int, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT MIN(timestamp), MAX(timestamp), COUNT(*) FROM messages`)
	var minN, maxN sql.NullInt64
	if scanErr := row.Scan(&minN, &maxN, &count); scanErr != nil {
		return 0, 0, 0, false, &rosbagerrors.IoError{Op: "aggregate bag-v2 message stats", Cause: scanErr}
	}
	if count == 0 {
		return 0, 0, 0, false, nil
	}
	return minN.Int64, maxN.Int64, count, true, nil
}

// shardMessageRow is one row of the topic-joined, time-ordered query.
type shardMessageRow struct {
	topicID   int64
	timestamp int64
	data      []byte
}

// queryMessages runs the cross-topic, time-windowed query described by
// spec.md §4.6, optionally restricted to topicIDs and/or [start, stop).
func (s *shard) queryMessages(ctx context.Context, topicIDs []int64, start, stop int64) (*sql.Rows, error) {
	query := `SELECT messages.topic_id, messages.timestamp, messages.data FROM messages`
	var args []any
	var where []string

	if len(topicIDs) > 0 {
		placeholders := make([]string, len(topicIDs))
		for i, id := range topicIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		where = append(where, "topic_id IN ("+strings.Join(placeholders, ",")+")")
	}
	if start != 0 {
		where = append(where, "timestamp >= ?")
		args = append(args, start)
	}
	if stop != 0 {
		where = append(where, "timestamp < ?")
		args = append(args, stop)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &rosbagerrors.IoError{Op: "query bag-v2 messages", Cause: err}
	}
	return rows, nil
}
