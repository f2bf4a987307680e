package memory_test

import "github.com/aretw0/spectate/pkg/domain"

func spectateBatch() domain.Batch {
	return domain.NewBatch(domain.NewEvent("k", 1))
}
