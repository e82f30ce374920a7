package gqlidx

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const balancesQuery = `
query Balances($first: Int!, $after: String, $threshold: BigInt) {
  accountsConnection(first: $first, after: $after, orderBy: total_DESC, where: { free_gt: $threshold }) {
    edges {
      node {
        id
        total
        free
        reserved
      }
    }
    totalCount
    pageInfo {
      endCursor
      hasNextPage
    }
  }
}
`

type balancesResponse struct {
	AccountsConnection struct {
		Edges []struct {
			Node accountNode `json:"node"`
		} `json:"edges"`
		TotalCount int `json:"totalCount"`
		PageInfo   struct {
			EndCursor   string `json:"endCursor"`
			HasNextPage bool   `json:"hasNextPage"`
		} `json:"pageInfo"`
	} `json:"accountsConnection"`
}

type accountNode struct {
	ID       string    `json:"id"`
	Total    bigString `json:"total"`
	Free     bigString `json:"free"`
	Reserved bigString `json:"reserved"`
}

// bigString is an integer amount serialized either as a JSON string or as a
// bare JSON number.
type bigString string

func (b *bigString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("amount is null")
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = bigString(s)
		return nil
	}
	*b = bigString(data)
	return nil
}
