// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/unit_imu/internal/config"
	"github.com/relabs-tech/unit_imu/internal/imu"
)

// RegisterCmd is any request sent by the register debug UI.
type RegisterCmd struct {
	Action  string `json:"action"` // get_map, read, read_all, write, init, set_scale, export_config
	Address string `json:"addr,omitempty"`
	Value   string `json:"value,omitempty"`
	Sensor  string `json:"sensor,omitempty"` // set_scale: "accel" or "gyro"
	Scale   *int   `json:"scale,omitempty"`  // set_scale: 0-3
}

// RegisterResponse is any reply sent to the UI.
type RegisterResponse struct {
	Type        string             `json:"type"` // register_data, register_map, status, export_config, error
	Address     string             `json:"addr,omitempty"`
	Value       string             `json:"value,omitempty"`
	Registers   map[string]string  `json:"registers,omitempty"` // for bulk read
	Timestamp   string             `json:"timestamp,omitempty"`
	Message     string             `json:"message,omitempty"`
	Status      string             `json:"status,omitempty"`
	AccelScale  string             `json:"accel_scale,omitempty"`
	GyroScale   string             `json:"gyro_scale,omitempty"`
	RegisterMap []imu.RegisterInfo `json:"register_map,omitempty"`
	Config      string             `json:"config,omitempty"`
	Filename    string             `json:"filename,omitempty"`
}

// RegisterDebugHandler serves the register debug websocket for one sensor.
type RegisterDebugHandler struct {
	Dev *imu.Dev
}

// registerDebugSession holds the websocket state of one UI connection.
type registerDebugSession struct {
	conn *websocket.Conn
	dev  *imu.Dev
}

// ServeHTTP handles the websocket connection for register debugging.
func (h *RegisterDebugHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("register_debug: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	s := &registerDebugSession{conn: conn, dev: h.Dev}

	// the map goes out first so the UI can render the table
	if err := s.sendRegisterMap(); err != nil {
		log.Printf("register_debug: error sending register map: %v", err)
		return
	}

	for {
		var cmd RegisterCmd
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("register_debug: websocket error: %v", err)
			}
			return
		}
		s.dispatch(cmd)
	}
}

func (s *registerDebugSession) dispatch(cmd RegisterCmd) {
	switch cmd.Action {
	case "get_map":
		s.sendRegisterMap()
	case "read":
		s.handleRead(cmd)
	case "read_all":
		s.handleReadAll()
	case "write":
		s.handleWrite(cmd)
	case "init":
		s.handleInit()
	case "set_scale":
		s.handleSetScale(cmd)
	case "export_config":
		s.handleExportConfig()
	case "":
		s.sendError("missing or invalid action field")
	default:
		s.sendError(fmt.Sprintf("unknown action: %s", cmd.Action))
	}
}

func parseHexByte(s string) (byte, error) {
	var b byte
	if _, err := fmt.Sscanf(s, "0x%X", &b); err != nil {
		return 0, err
	}
	return b, nil
}

func (s *registerDebugSession) handleRead(cmd RegisterCmd) {
	if cmd.Address == "" {
		s.sendError("missing addr field")
		return
	}
	addr, err := parseHexByte(cmd.Address)
	if err != nil {
		s.sendError(fmt.Sprintf("invalid address format: %s", cmd.Address))
		return
	}

	value, err := s.dev.ReadRegister(addr)
	if err != nil {
		s.sendError(fmt.Sprintf("read error: %v", err))
		return
	}

	s.send(RegisterResponse{
		Type:      "register_data",
		Address:   fmt.Sprintf("0x%02X", addr),
		Value:     fmt.Sprintf("0x%02X", value),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *registerDebugSession) handleReadAll() {
	registers, err := s.dev.ReadAllRegisters()
	if err != nil {
		s.sendError(fmt.Sprintf("read all error: %v", err))
		return
	}

	regMap := make(map[string]string, len(registers))
	for addr, value := range registers {
		regMap[fmt.Sprintf("0x%02X", addr)] = fmt.Sprintf("0x%02X", value)
	}

	s.send(RegisterResponse{
		Type:      "register_data",
		Registers: regMap,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *registerDebugSession) handleWrite(cmd RegisterCmd) {
	if cmd.Address == "" || cmd.Value == "" {
		s.sendError("missing addr or value field")
		return
	}
	addr, err := parseHexByte(cmd.Address)
	if err != nil {
		s.sendError(fmt.Sprintf("invalid address format: %s", cmd.Address))
		return
	}
	value, err := parseHexByte(cmd.Value)
	if err != nil {
		s.sendError(fmt.Sprintf("invalid value format: %s", cmd.Value))
		return
	}
	if !isRegisterWritable(addr) {
		s.sendError(fmt.Sprintf("register 0x%02X is not writable", addr))
		return
	}

	if err := s.dev.WriteRegister(addr, value); err != nil {
		s.sendError(fmt.Sprintf("write error: %v", err))
		return
	}

	s.send(RegisterResponse{
		Type:      "register_data",
		Address:   fmt.Sprintf("0x%02X", addr),
		Value:     fmt.Sprintf("0x%02X", value),
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   "write successful",
	})
}

func (s *registerDebugSession) handleInit() {
	if err := s.dev.Reinit(); err != nil {
		s.sendError(fmt.Sprintf("reinit error: %v", err))
		return
	}
	s.sendStatus("initialized", "IMU reinitialized successfully")
}

func (s *registerDebugSession) handleSetScale(cmd RegisterCmd) {
	if cmd.Scale == nil || *cmd.Scale < 0 || *cmd.Scale > 3 {
		s.sendError("scale must be 0-3")
		return
	}
	var err error
	switch cmd.Sensor {
	case "accel":
		err = s.dev.SetAccelScale(imu.AccelScale(*cmd.Scale))
	case "gyro":
		err = s.dev.SetGyroScale(imu.GyroScale(*cmd.Scale))
	default:
		s.sendError(fmt.Sprintf("unknown sensor %q (want accel or gyro)", cmd.Sensor))
		return
	}
	if err != nil {
		s.sendError(fmt.Sprintf("set scale error: %v", err))
		return
	}
	s.sendStatus("scale_set", fmt.Sprintf("%s scale updated", cmd.Sensor))
}

func (s *registerDebugSession) handleExportConfig() {
	snap, err := TakeSnapshot(s.dev)
	if err != nil {
		s.sendError(fmt.Sprintf("export error: %v", err))
		return
	}
	configJSON, err := json.Marshal(snap)
	if err != nil {
		s.sendError(fmt.Sprintf("export error: %v", err))
		return
	}
	s.send(RegisterResponse{
		Type:     "export_config",
		Message:  "config exported",
		Config:   string(configJSON),
		Filename: fmt.Sprintf("mpu6886_%s_registers.json", time.Now().Format("20060102_150405")),
	})
}

func (s *registerDebugSession) sendRegisterMap() error {
	return s.conn.WriteJSON(RegisterResponse{
		Type:        "register_map",
		RegisterMap: imu.RegisterMap(),
	})
}

func (s *registerDebugSession) sendStatus(status, message string) {
	s.send(RegisterResponse{
		Type:       "status",
		Status:     status,
		Message:    message,
		AccelScale: s.dev.AccelScale().String(),
		GyroScale:  s.dev.GyroScale().String(),
	})
}

func (s *registerDebugSession) sendError(message string) {
	s.send(RegisterResponse{Type: "error", Message: message})
}

func (s *registerDebugSession) send(resp RegisterResponse) {
	if err := s.conn.WriteJSON(resp); err != nil {
		log.Debugf("register_debug: write: %v", err)
	}
}

// isRegisterWritable allows writes only to registers the map marks writable.
func isRegisterWritable(addr byte) bool {
	info, ok := imu.LookupRegister(addr)
	return ok && info.Writable()
}

// RunRegisterDebug serves the register debug websocket on REGISTER_DEBUG_PORT.
func RunRegisterDebug(ctx context.Context, cfg *config.Config) error {
	unit, err := OpenUnit(cfg)
	if err != nil {
		return err
	}
	defer unit.Close()

	mux := http.NewServeMux()
	mux.Handle("/ws/registers", &RegisterDebugHandler{Dev: unit.Dev})
	mux.HandleFunc("/api/registers", func(w http.ResponseWriter, r *http.Request) {
		snap, err := TakeSnapshot(unit.Dev)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, snap)
	})
	return serveHTTP(ctx, fmt.Sprintf(":%d", cfg.RegisterDebugPort), mux, "register_debug")
}
