package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// MaxBatchIDs is the provider's documented per-call limit for token metadata.
const MaxBatchIDs = 100

// TokenInfo fetches metadata for up to MaxBatchIDs tokens in one call.
// The result map contains an entry for every id the provider knows about;
// unknown ids are simply absent.
func (c *Client) TokenInfo(ctx context.Context, ids []int64) (map[int64]TokenInfo, error) {
	if len(ids) == 0 {
		return map[int64]TokenInfo{}, nil
	}
	if len(ids) > MaxBatchIDs {
		return nil, fmt.Errorf("get token info: %d ids exceeds the per-call limit of %d", len(ids), MaxBatchIDs)
	}

	joined := make([]string, len(ids))
	for i, id := range ids {
		joined[i] = strconv.FormatInt(id, 10)
	}

	query := url.Values{}
	query.Set("id", strings.Join(joined, ","))

	var resp tokenInfoResponse
	if err := c.get(ctx, "/cryptocurrency/info", query, &resp); err != nil {
		return nil, fmt.Errorf("get token info: %w", err)
	}

	infos := make(map[int64]TokenInfo, len(resp.Data))
	for key, info := range resp.Data {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			c.logger.Warn("skipping token info with non-numeric key", "key", key)
			continue
		}
		if info.ID == 0 {
			info.ID = id
		}
		infos[id] = info
	}

	return infos, nil
}
