package push

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoop(t *testing.T) {
	var s Sender = Noop{}
	assert.NoError(t, s.Send(context.Background(), Message{Token: "tok", Title: "Hi"}))
}
