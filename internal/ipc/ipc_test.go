package ipc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeAndSend(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "ctl.sock")

	var got []string
	srv, err := Serve(sock, func(cmd Command) Reply {
		got = append(got, cmd.Cmd)
		switch cmd.Cmd {
		case CmdMute:
			return Reply{OK: true, Muted: true}
		case CmdStatus:
			return Reply{OK: true, Muted: false}
		default:
			return Reply{OK: false, Error: "unknown command: " + cmd.Cmd}
		}
	}, nil)
	require.NoError(t, err)
	defer srv.Close()

	reply, err := Send(sock, CmdMute)
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.True(t, reply.Muted)

	reply, err = Send(sock, CmdStatus)
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.False(t, reply.Muted)

	reply, err = Send(sock, "bogus")
	require.NoError(t, err)
	assert.False(t, reply.OK)
	assert.Contains(t, reply.Error, "unknown command")

	assert.Equal(t, []string{CmdMute, CmdStatus, "bogus"}, got)
}

func TestSendWithoutServer(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "missing.sock")
	_, err := Send(sock, CmdStatus)
	assert.Error(t, err)
}

func TestServeReplacesStaleSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "ctl.sock")

	srv, err := Serve(sock, func(Command) Reply { return Reply{OK: true} }, nil)
	require.NoError(t, err)
	require.NoError(t, srv.Close())

	srv2, err := Serve(sock, func(Command) Reply { return Reply{OK: true} }, nil)
	require.NoError(t, err)
	defer srv2.Close()

	reply, err := Send(sock, CmdStatus)
	require.NoError(t, err)
	assert.True(t, reply.OK)
}
