package userpb

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	require.NotNil(t, codec)
	require.Equal(t, CodecName, codec.Name())
}

func TestCodecRoundTrip(t *testing.T) {
	codec := jsonCodec{}

	in := &CreateUserRequest{Name: "Alice", Email: "alice@example.com", Age: 28, Phone: "13800000001"}
	data, err := codec.Marshal(in)
	require.NoError(t, err)

	var out CreateUserRequest
	require.NoError(t, codec.Unmarshal(data, &out))
	require.Equal(t, *in, out)
}

func TestUserInfoWireNames(t *testing.T) {
	codec := jsonCodec{}

	data, err := codec.Marshal(&UserInfo{Id: 1, CreatedTime: 1714564800000, Status: "ACTIVE"})
	require.NoError(t, err)

	s := string(data)
	require.Contains(t, s, `"id":1`)
	require.Contains(t, s, `"createdTime":1714564800000`)
	require.Contains(t, s, `"updatedTime":0`)
	require.Contains(t, s, `"status":"ACTIVE"`)
}
