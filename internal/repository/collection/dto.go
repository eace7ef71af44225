package collection

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jetkart/jetkart/internal/domain"
	"github.com/jetkart/jetkart/internal/domain/vocab"
)

// Metadata hash field names.
const (
	fieldName      = "name"
	fieldVectorDim = "vector_dim"
	fieldVocab     = "vocabulary"
	fieldCreatedAt = "created_at"
)

func metaKey(name string) string {
	return fmt.Sprintf("%scollections:%s", domain.KeyPrefix, name)
}

func indexName(name string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, name)
}

func docPrefix(name string) string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, name)
}

// keyPattern matches every corpus key of a collection generation. The
// metadata hash lives under the collections: namespace and is handled
// separately via metaKey.
func keyPattern(name string) string {
	return fmt.Sprintf("%s%s:*", domain.KeyPrefix, name)
}

// vocabDTO is the JSON shape the vocabulary serializes to in metadata.
type vocabDTO struct {
	Fields []vocabFieldDTO `json:"fields"`
	Price  priceDTO        `json:"price"`
}

type vocabFieldDTO struct {
	Name   string     `json:"name"`
	Type   vocab.Type `json:"type"`
	Values []string   `json:"values,omitempty"`
}

type priceDTO struct {
	Min     int         `json:"min"`
	Max     int         `json:"max"`
	Buckets []bucketDTO `json:"buckets"`
}

type bucketDTO struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
}

func vocabToJSON(v vocab.Vocabulary) (string, error) {
	dto := vocabDTO{
		Price: priceDTO{Min: v.Price().Min, Max: v.Price().Max},
	}
	for _, f := range v.Fields() {
		dto.Fields = append(dto.Fields, vocabFieldDTO{
			Name: f.Name(), Type: f.FieldType(), Values: f.Values(),
		})
	}
	for _, b := range v.Price().Buckets {
		dto.Price.Buckets = append(dto.Price.Buckets, bucketDTO(b))
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return "", fmt.Errorf("marshal vocabulary: %w", err)
	}
	return string(data), nil
}

func vocabFromJSON(data string) (vocab.Vocabulary, error) {
	if data == "" {
		return vocab.Vocabulary{}, nil
	}
	var dto vocabDTO
	if err := json.Unmarshal([]byte(data), &dto); err != nil {
		return vocab.Vocabulary{}, fmt.Errorf("unmarshal vocabulary: %w", err)
	}
	fields := make([]vocab.Field, 0, len(dto.Fields))
	for _, f := range dto.Fields {
		fields = append(fields, vocab.Reconstruct(f.Name, f.Type, f.Values))
	}
	price := vocab.PriceStats{Min: dto.Price.Min, Max: dto.Price.Max}
	for _, b := range dto.Price.Buckets {
		price.Buckets = append(price.Buckets, vocab.Bucket(b))
	}
	return vocab.New(fields, price)
}

func collectionToHash(col domain.Collection) (map[string]string, error) {
	vocabJSON, err := vocabToJSON(col.Vocabulary())
	if err != nil {
		return nil, err
	}
	return map[string]string{
		fieldName:      col.Name(),
		fieldVectorDim: strconv.Itoa(col.VectorDim()),
		fieldVocab:     vocabJSON,
		fieldCreatedAt: strconv.FormatInt(col.CreatedAt(), 10),
	}, nil
}

func collectionFromHash(m map[string]string) (domain.Collection, error) {
	name := m[fieldName]
	if name == "" {
		return domain.Collection{}, fmt.Errorf("collection hash missing name")
	}
	dim, err := strconv.Atoi(m[fieldVectorDim])
	if err != nil {
		return domain.Collection{}, fmt.Errorf("parse vector_dim for %s: %w", name, err)
	}
	v, err := vocabFromJSON(m[fieldVocab])
	if err != nil {
		return domain.Collection{}, fmt.Errorf("parse vocabulary for %s: %w", name, err)
	}
	createdAt, _ := strconv.ParseInt(m[fieldCreatedAt], 10, 64)
	return domain.ReconstructCollection(name, dim, v, createdAt), nil
}
