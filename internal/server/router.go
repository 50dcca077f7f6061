package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rawgrid/crocomine-agent/pkg/models"
)

// Server deals grids to registered groups and referees their moves. One
// session plays one grid; new_grid retires the previous session and serves
// the next map in order.
type Server struct {
	hub   *Hub
	grids []*Grid

	mutex    sync.Mutex
	next     map[string]int   // group -> index of the next grid to serve
	sessions map[string]*play // session id -> running game
}

type play struct {
	group string
	grid  *Grid
	game  *Game
}

func NewServer(grids []*Grid, hub *Hub) *Server {
	return &Server{
		hub:      hub,
		grids:    grids,
		next:     make(map[string]int),
		sessions: make(map[string]*play),
	}
}

// SetupRouter wires the game protocol: new_grid, the three moves, and the
// spectator stream.
func SetupRouter(srv *Server) *gin.Engine {
	r := gin.Default()

	r.POST("/new_grid", srv.handleNewGrid)
	r.POST("/discover", srv.handleMove("discover"))
	r.POST("/guess", srv.handleMove("guess"))
	r.POST("/chord", srv.handleMove("chord"))
	if srv.hub != nil {
		r.GET("/ws", srv.hub.Subscribe)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "grids": len(srv.grids)})
	})

	return r
}

func (s *Server) handleNewGrid(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, models.NewGridResponse{Status: models.StatusErr, Msg: "malformed registration"})
		return
	}
	if req.Group == "" {
		c.JSON(http.StatusOK, models.NewGridResponse{Status: models.StatusErr, Msg: "missing group name"})
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	idx := s.next[req.Group]
	if idx >= len(s.grids) {
		c.JSON(http.StatusOK, models.NewGridResponse{Status: models.StatusErr, Msg: "no more grids"})
		return
	}
	s.next[req.Group] = idx + 1

	// Retire the group's previous session before serving the next map.
	for id, p := range s.sessions {
		if p.group == req.Group {
			delete(s.sessions, id)
		}
	}

	grid := s.grids[idx]
	sessionID := uuid.NewString()
	s.sessions[sessionID] = &play{group: req.Group, grid: grid, game: NewGame(grid)}

	log.Printf("Group %q starts grid %q (session %s)", req.Group, grid.Name, sessionID)
	s.hub.Broadcast(GameEvent{SessionID: sessionID, Grid: grid.Name, Move: "new_grid", Status: models.StatusOK})

	c.JSON(http.StatusOK, models.NewGridResponse{
		Status:    models.StatusOK,
		Msg:       grid.Name,
		Grid:      grid.Info(),
		SessionID: sessionID,
	})
}

func (s *Server) handleMove(move string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.MoveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, models.MoveResponse{Status: models.StatusErr, Msg: "malformed move"})
			return
		}

		s.mutex.Lock()
		session, ok := s.sessions[req.SessionID]
		s.mutex.Unlock()
		if !ok {
			c.JSON(http.StatusOK, models.MoveResponse{Status: models.StatusErr, Msg: "unknown session"})
			return
		}

		var (
			status models.Status
			msg    string
			infos  []models.Observation
		)
		switch move {
		case "discover":
			status, msg, infos = session.game.Discover(req.Row, req.Col)
		case "guess":
			status, msg, infos = session.game.Guess(req.Row, req.Col, req.Animal)
		default:
			status, msg, infos = session.game.Chord(req.Row, req.Col)
		}

		s.hub.Broadcast(GameEvent{
			SessionID: req.SessionID,
			Grid:      session.grid.Name,
			Move:      move,
			Row:       req.Row,
			Col:       req.Col,
			Species:   req.Animal,
			Status:    status,
			Revealed:  infos,
		})

		c.JSON(http.StatusOK, models.MoveResponse{Status: status, Msg: msg, Infos: infos})
	}
}
