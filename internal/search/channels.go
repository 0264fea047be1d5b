package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/tg_landing/internal/models"
)

type channelDoc struct {
	UUID        string `json:"uuid"`
	UserID      uint   `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ChannelIndex keeps a full-text copy of active channels, keyed by uuid.
type ChannelIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewChannelIndex(es *elasticsearch.Client, index string) *ChannelIndex {
	return &ChannelIndex{es: es, index: index}
}

func (x *ChannelIndex) IndexChannel(ctx context.Context, ch *models.Channel) error {
	doc := channelDoc{UUID: ch.UUID, UserID: ch.UserID, Name: ch.Name}
	if ch.Description != nil {
		doc.Description = *ch.Description
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encode doc: %w", err)
	}

	res, err := x.es.Index(x.index, &buf,
		x.es.Index.WithContext(ctx),
		x.es.Index.WithDocumentID(ch.UUID),
	)
	if err != nil {
		return fmt.Errorf("index channel: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index channel", res.Status(), res.Body)
	}
	return nil
}

func (x *ChannelIndex) RemoveChannel(ctx context.Context, uuid string) error {
	res, err := x.es.Delete(x.index, uuid, x.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("remove channel: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("remove channel", res.Status(), res.Body)
	}
	return nil
}

// SearchChannels returns matching channel uuids of one owner, best match first.
func (x *ChannelIndex) SearchChannels(ctx context.Context, ownerID uint, query string, from, size int) ([]string, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     query,
						"fields":    []string{"name^2", "description"},
						"fuzziness": "AUTO",
					},
				},
				"filter": []any{
					map[string]any{"term": map[string]any{"user_id": ownerID}},
				},
			},
		},
		"from":    from,
		"size":    size,
		"_source": []string{"uuid"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := x.es.Search(
		x.es.Search.WithContext(ctx),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search channels: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search channels", res.Status(), res.Body)
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source channelDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}

	out := make([]string, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		out = append(out, hit.Source.UUID)
	}
	return out, nil
}

func responseError(op, status string, body io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(body, 4096))
	return fmt.Errorf("%s: %s: %s", op, status, strconv.Quote(string(raw)))
}
