// probe is a headless client: it connects, wanders, and casts the first
// spell it knows at nearby terrain. Useful for smoke-testing a server and
// generating load.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"spellcoder.dev/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "probe", "caster name")
		spell = flag.String("spell", "blast", "spell id to cast")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[probe] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Name:            *name,
		Capabilities:    protocol.Capabilities{MaxQueue: 8},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	var casterID string

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			casterID = w.CasterID
			logger.Printf("WELCOME caster_id=%s tick_rate=%d seed=%d spells=%d",
				w.CasterID, w.WorldParams.TickRateHz, w.WorldParams.Seed, w.Spellbook.Count)

		case protocol.TypeResult:
			var res protocol.ResultMsg
			if err := json.Unmarshal(msg, &res); err != nil {
				continue
			}
			if !res.OK {
				logger.Printf("RESULT act_id=%s code=%s", res.ActID, res.Code)
			}

		case protocol.TypeObs:
			var obs protocol.ObsMsg
			if err := json.Unmarshal(msg, &obs); err != nil {
				continue
			}
			if casterID == "" {
				continue
			}
			handleObs(conn, logger, r, *spell, &obs)
		}
	}
}

func handleObs(conn *websocket.Conn, logger *log.Logger, r *rand.Rand, spell string, obs *protocol.ObsMsg) {
	if obs.Tick%300 == 0 {
		logger.Printf("tick=%d pos=[%.1f,%.1f] hp=%d chunks=%d",
			obs.Tick, obs.You.Pos[0], obs.You.Pos[1], obs.You.HP, len(obs.Chunks))
	}

	// Random walk: flip direction every few seconds, jump occasionally.
	if obs.Tick%60 == 0 {
		act := protocol.ActMsg{
			Type:            protocol.TypeAct,
			ProtocolVersion: protocol.Version,
			ActID:           fmt.Sprintf("mv_%s", uuid.NewString()),
			Kind:            protocol.ActMove,
			Move: &protocol.MoveAct{
				DX:   float64(r.Intn(3) - 1),
				Jump: r.Intn(4) == 0,
			},
		}
		_ = conn.WriteJSON(act)
	}

	// Cast at a random nearby cell every ~10 seconds.
	if obs.Tick%200 == 20 {
		tx := int(obs.You.Pos[0]) + r.Intn(9) - 4
		ty := int(obs.You.Pos[1]) + r.Intn(9) - 4
		act := protocol.ActMsg{
			Type:            protocol.TypeAct,
			ProtocolVersion: protocol.Version,
			ActID:           fmt.Sprintf("cast_%s", uuid.NewString()),
			Kind:            protocol.ActCast,
			Cast:            &protocol.CastAct{SpellID: spell, Target: [2]int{tx, ty}},
		}
		_ = conn.WriteJSON(act)
	}
}
