package qdrantDB

import (
	"context"
	"encoding/json"
	"time"

	"github.com/akolanti/ResearchAPI/internal/rag/vectorDB"
	"github.com/qdrant/go-client/qdrant"
)

const (
	userIdField    = "user_id"
	answerField    = "answer"
	citationsField = "citations"
)

func (db *ClientHolder) GetCachedAnswer(ctx context.Context, userId string, queryVector []float32) (vectorDB.CachedAnswer, bool, error) {
	loggr := logger.Ctx(ctx)

	searchResult, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(queryVector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(userIdField, userId)},
		},
		Limit:          qdrant.PtrOf(uint64(1)),
		ScoreThreshold: qdrant.PtrOf(db.cutoff),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Cache query failed", "error", err)
		return vectorDB.CachedAnswer{}, false, err
	}
	if len(searchResult) == 0 {
		return vectorDB.CachedAnswer{}, false, nil
	}

	hit := searchResult[0]
	loggr.Debug("Semantic cache hit", "score", hit.Score)
	answer := vectorDB.CachedAnswer{
		Answer: hit.Payload[answerField].GetStringValue(),
		Score:  float64(hit.Score),
	}
	if raw := hit.Payload[citationsField].GetStringValue(); raw != "" {
		if err = json.Unmarshal([]byte(raw), &answer.Citations); err != nil {
			loggr.Warn("Dropping unreadable cached citations", "error", err)
		}
	}
	return answer, answer.Answer != "", nil
}

func (db *ClientHolder) SaveToCache(ctx context.Context, userId string, id string, vector []float32, answer vectorDB.CachedAnswer) error {
	citations, err := json.Marshal(answer.Citations)
	if err != nil {
		return err
	}

	_, err = db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					userIdField:    userId,
					answerField:    answer.Answer,
					citationsField: string(citations),
					"timestamp":    time.Now().Unix(),
				}),
			},
		},
	})
	if err != nil {
		logger.Ctx(ctx).Error("Saving answer to cache failed", "error", err)
	}
	return err
}

func (db *ClientHolder) InvalidateUser(ctx context.Context, userId string) error {
	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: db.collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(userIdField, userId)},
		}),
	})
	if err != nil {
		logger.Ctx(ctx).Error("Dropping cached answers failed", "userId", userId, "error", err)
	}
	return err
}
