package server_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/rawgrid/crocomine-agent/internal/agent"
	"github.com/rawgrid/crocomine-agent/internal/client"
	"github.com/rawgrid/crocomine-agent/internal/server"
	"github.com/rawgrid/crocomine-agent/pkg/models"
)

// The whole stack in one loop: the agent plays a practice grid over HTTP and
// must clear it.
func TestAgentSolvesPracticeGrid(t *testing.T) {
	gin.SetMode(gin.TestMode)

	grid, err := server.ParseGrid(strings.NewReader("itest\n1 3\n0 0\n- T -\n"))
	require.NoError(t, err)
	ts := httptest.NewServer(server.SetupRouter(server.NewServer([]*server.Grid{grid}, nil)))
	defer ts.Close()

	cli := client.New(client.Config{Server: ts.URL, Group: "itest", Members: "ci"})
	status, _, info, err := cli.NewGrid()
	require.NoError(t, err)
	require.Equal(t, models.StatusOK, status)
	require.Equal(t, 1, info.TigerCount)

	eng, err := agent.NewGame(info.M, info.N, info.TigerCount, info.SharkCount, info.CrocoCount,
		info.LandCount, info.SeaCount, 42)
	require.NoError(t, err)

	status, _, infos, err := cli.Discover(info.Start[0], info.Start[1])
	require.NoError(t, err)

	for moves := 0; status == models.StatusOK; moves++ {
		require.Less(t, moves, 20, "agent did not finish the grid")
		for _, obs := range infos {
			require.NoError(t, eng.AddObservation(obs))
		}

		d, err := eng.Decide()
		require.NoError(t, err)
		switch d.Action {
		case agent.ActionGuess:
			status, _, infos, err = cli.Guess(d.Row, d.Col, d.Species)
		case agent.ActionDiscover:
			status, _, infos, err = cli.Discover(d.Row, d.Col)
		case agent.ActionChord:
			status, _, infos, err = cli.Chord(d.Row, d.Col)
		default:
			t.Fatalf("agent gave up with action %q", d.Action)
		}
		require.NoError(t, err)
	}

	require.Equal(t, models.StatusGG, status, "agent should clear the practice grid")

	// A second new_grid for the same group runs out of maps.
	status, _, _, err = cli.NewGrid()
	require.NoError(t, err)
	require.Equal(t, models.StatusErr, status)
}
