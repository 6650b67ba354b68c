package sink

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artfilter/st-go/model"
)

func TestMJPEGOpenFailsOnOccupiedAddress(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	svc := NewMJPEG(occupied.Addr().String())
	err = svc.Open()

	assert.ErrorIs(t, err, model.ErrSinkFailure)
}

func TestMJPEGOpenBindsAndCloseIsIdempotent(t *testing.T) {
	svc := NewMJPEG("127.0.0.1:0")
	require.NoError(t, svc.Open())

	svc.Close()
	svc.Close() // second close must be a no-op
}
