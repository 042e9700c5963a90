package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// GetTodayAvailability fetches the snapshot for businessID. A zero asOf means now.
func (c *Client) GetTodayAvailability(ctx context.Context, businessID string, asOf time.Time) (*structpb.Struct, error) {
	fields := map[string]any{"business_id": businessID}
	if !asOf.IsZero() {
		fields["as_of"] = asOf.Format(time.RFC3339)
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, GetTodayAvailabilityMethod, req, out); err != nil {
		return nil, err
	}
	return out, nil
}
