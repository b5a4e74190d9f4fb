//go:build unix

package echodb

import (
	"context"

	"github.com/webriots/green"
)

// Cursor is the operation handle passed to wait handlers.
type Cursor struct {
	Query string
}

// Operation implements green.Cursor.
func (c *Cursor) Operation() string {
	return c.Query
}

// Exec sends query on conn and waits for the answer. In cooperative
// mode every wait goes through the handler registered with the
// registry found in ctx; otherwise the calling goroutine blocks in
// poll(2).
func Exec(ctx context.Context, conn *Conn, query string) (string, error) {
	if err := conn.Send(query); err != nil {
		return "", err
	}

	cur := &Cursor{Query: query}
	reg := green.RegistryFromContext(ctx)

	var err error
	if reg.Green() {
		err = reg.Drive(ctx, conn, cur)
	} else {
		err = green.WaitSelect(ctx, conn, cur)
	}
	if err != nil {
		return "", err
	}

	return conn.Result()
}
