package logfields

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFieldKeys(t *testing.T) {
	require.Equal(t, KeyBuildID, BuildID("b1").Key)
	require.Equal(t, "b1", BuildID("b1").Value.String())

	require.Equal(t, KeyFiles, Files(3).Key)
	require.Equal(t, int64(3), Files(3).Value.Int64())

	require.Equal(t, KeyDuration, Duration(time.Second).Key)
}

func TestError(t *testing.T) {
	require.Equal(t, "boom", Error(errors.New("boom")).Value.String())
	require.Equal(t, "", Error(nil).Value.String())
}
