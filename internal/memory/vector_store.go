package memory

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/projectlily/lily/internal/schema"
)

// VectorStore is a brute-force nearest-neighbour index over the memories table.
type VectorStore struct {
	db   *DB
	dims int
}

// NewVectorStore returns a VectorStore. dims <= 0 accepts any dimension but
// every stored vector must still match the query's length to be compared.
func NewVectorStore(db *DB, dims int) *VectorStore {
	return &VectorStore{db: db, dims: dims}
}

// Index stores text under vector.
func (v *VectorStore) Index(ctx context.Context, text string, vector []float32) error {
	if err := v.checkDims(vector); err != nil {
		return err
	}
	_, err := v.db.sql.ExecContext(ctx,
		`INSERT INTO memories (id, text, embedding, dims, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), text, encodeVector(vector), len(vector), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// Query returns up to k memories closest to vector by euclidean distance,
// closest first. maxDistance <= 0 disables the cutoff.
func (v *VectorStore) Query(ctx context.Context, vector []float32, k int, maxDistance float64) ([]schema.Recollection, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := v.checkDims(vector); err != nil {
		return nil, err
	}

	rows, err := v.db.sql.QueryContext(ctx,
		`SELECT text, embedding FROM memories WHERE dims = ?`, len(vector))
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var hits []schema.Recollection
	for rows.Next() {
		var (
			text string
			blob []byte
		)
		if err := rows.Scan(&text, &blob); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		d := euclidean(vector, decodeVector(blob))
		if maxDistance > 0 && d > maxDistance {
			continue
		}
		hits = append(hits, schema.Recollection{Text: text, Distance: d})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read memories: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of stored memories.
func (v *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := v.db.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count memories: %w", err)
	}
	return n, nil
}

// Clear deletes every memory.
func (v *VectorStore) Clear(ctx context.Context) error {
	if _, err := v.db.sql.ExecContext(ctx, `DELETE FROM memories`); err != nil {
		return fmt.Errorf("clear memories: %w", err)
	}
	return nil
}

func (v *VectorStore) checkDims(vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty vector")
	}
	if v.dims > 0 && len(vector) != v.dims {
		return fmt.Errorf("vector has %d dimensions, want %d", len(vector), v.dims)
	}
	return nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
