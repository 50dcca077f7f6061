// Package client speaks the Crocomine game protocol: new_grid hands out a
// grid, then discover/guess/chord moves run until the server answers GG, KO
// or Err.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/rawgrid/crocomine-agent/pkg/models"
)

type Config struct {
	Server  string // base URL, e.g. http://localhost:8000
	Group   string
	Members string
}

type Client struct {
	cfg       Config
	http      *http.Client
	sessionID string
}

// New builds a game client. The server is not contacted until NewGrid.
func New(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewGrid asks the server for the next grid and binds the session to it.
func (c *Client) NewGrid() (models.Status, string, models.GridInfo, error) {
	body := models.RegisterRequest{Group: c.cfg.Group, Members: c.cfg.Members}
	var resp models.NewGridResponse
	if err := c.post("/new_grid", body, &resp); err != nil {
		return models.StatusErr, "", models.GridInfo{}, err
	}
	if resp.Status != models.StatusErr {
		c.sessionID = resp.SessionID
		log.Printf("Serving grid %q (%dx%d, %d tigers, %d sharks, %d crocodiles)",
			resp.Grid.Name, resp.Grid.M, resp.Grid.N,
			resp.Grid.TigerCount, resp.Grid.SharkCount, resp.Grid.CrocoCount)
	}
	return resp.Status, resp.Msg, resp.Grid, nil
}

// Discover reveals a supposedly free cell.
func (c *Client) Discover(row, col int) (models.Status, string, []models.Observation, error) {
	return c.move("/discover", models.MoveRequest{SessionID: c.sessionID, Row: row, Col: col})
}

// Guess claims an animal species at a cell.
func (c *Client) Guess(row, col int, species models.Species) (models.Status, string, []models.Observation, error) {
	return c.move("/guess", models.MoveRequest{SessionID: c.sessionID, Row: row, Col: col, Animal: species})
}

// Chord bulk-reveals the unmarked neighbors of a satisfied free cell.
func (c *Client) Chord(row, col int) (models.Status, string, []models.Observation, error) {
	return c.move("/chord", models.MoveRequest{SessionID: c.sessionID, Row: row, Col: col})
}

func (c *Client) move(path string, req models.MoveRequest) (models.Status, string, []models.Observation, error) {
	var resp models.MoveResponse
	if err := c.post(path, req, &resp); err != nil {
		return models.StatusErr, "", nil, err
	}
	return resp.Status, resp.Msg, resp.Infos, nil
}

func (c *Client) post(path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %v", path, err)
	}
	resp, err := c.http.Post(c.cfg.Server+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("calling %s: %v", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %v", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned HTTP %d: %s", path, resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s response: %v", path, err)
	}
	return nil
}
