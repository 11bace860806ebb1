package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/test"
	"github/chapool/relayer/internal/util/command"
)

func TestWithServer(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		ctx := t.Context()

		var testError = errors.New("test error")

		s.Config.Logger.PrettyPrintConsole = false
		resultErr := command.WithServer(ctx, s.Config, func(ctx context.Context, s *api.Server) error {
			balance, err := s.Relayer.GetBalance(ctx, 0)
			require.NoError(t, err)

			assert.Equal(t, test.OperatorAddress, balance.Address.Hex())
			assert.Equal(t, "0", balance.Ether)

			return testError
		})

		assert.Equal(t, testError, resultErr)
	})
}

func TestNewSubcommandGroup(t *testing.T) {
	child := &cobra.Command{Use: "child", Run: func(*cobra.Command, []string) {}}
	group := command.NewSubcommandGroup("group", child)

	assert.Equal(t, "group", group.Use)
	require.Len(t, group.Commands(), 1)
	assert.Equal(t, "child", group.Commands()[0].Use)
}
