package operations

import (
	"context"
)

type IFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
