package storage

import (
	"database/sql/driver"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CosineDistanceFunc is the SQL function registered on SQLite connections
const CosineDistanceFunc = "vec_cosine_distance"

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineDistance computes 1 - cosine similarity.
// Mismatched or zero-length vectors are maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	return 1 - dotProduct/(math.Sqrt(normA)*math.Sqrt(normB))
}

// sqlCosineDistance implements CosineDistanceFunc over two serialized vectors.
// Either argument NULL gives NULL, matching pgvector's <=>.
func sqlCosineDistance(a, b any) (driver.Value, error) {
	if a == nil || b == nil {
		return nil, nil
	}
	blobA, okA := a.([]byte)
	blobB, okB := b.([]byte)
	if !okA || !okB {
		return nil, fmt.Errorf("%s: arguments must be blobs, got %T and %T", CosineDistanceFunc, a, b)
	}
	if len(blobA)%4 != 0 || len(blobB)%4 != 0 {
		return nil, errors.New(CosineDistanceFunc + ": malformed vector blob")
	}
	return cosineDistance(deserializeVector(blobA), deserializeVector(blobB)), nil
}

// formatPGVector renders a pgvector text literal, e.g. [0.1,0.2]
func formatPGVector(vector []float32) string {
	var b strings.Builder
	b.Grow(len(vector)*10 + 2)
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// parsePGVector reads a pgvector text literal
func parsePGVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("malformed vector literal %q", truncate(s, 32))
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []float32{}, nil
	}
	parts := strings.Split(body, ",")
	vector := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("malformed vector element %d: %w", i, err)
		}
		vector[i] = float32(f)
	}
	return vector, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
