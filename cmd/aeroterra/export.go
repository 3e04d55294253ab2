package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/aeroterra/sim/internal/config"
	"github.com/aeroterra/sim/internal/database"
	"github.com/aeroterra/sim/internal/model"
)

// exportSessions dumps recorded sessions from the database to gzip JSON
// replay files, one per session.
func exportSessions(sessionIDs []string) error {
	db, err := openExportDB()
	if err != nil {
		return err
	}

	for _, sessionID := range sessionIDs {
		idInt, err := strconv.Atoi(sessionID)
		if err != nil {
			return err
		}

		txStart := time.Now()
		var session model.Session
		err = db.Model(&model.Session{}).Where("id = ?", idInt).First(&session).Error
		if err != nil {
			return fmt.Errorf("error getting session %d: %w", idInt, err)
		}

		replay := map[string]any{
			"session":   session.Name,
			"world":     session.World,
			"startTime": session.StartTime,
			"endTime":   session.EndTime,
			"tickRate":  session.TickRate,
			"originLon": session.OriginLon,
			"originLat": session.OriginLat,
		}

		flightSamples := []model.FlightSample{}
		err = db.Model(&model.FlightSample{}).
			Where("session_id = ?", idInt).
			Order("tick ASC").
			Find(&flightSamples).Error
		if err != nil {
			return fmt.Errorf("error getting flight samples: %w", err)
		}

		flightTrack := []any{}
		for _, s := range flightSamples {
			x, y, z := decodePosition(s.Position)
			flightTrack = append(flightTrack, []any{
				s.Tick,
				[]float64{x, y, z},
				s.HeadingDeg,
				s.Speed,
				s.Altitude,
				s.ThrottlePct,
				s.AoADeg,
				s.Stalled,
			})
		}
		replay["flightTrack"] = flightTrack

		groundSamples := []model.GroundSample{}
		err = db.Model(&model.GroundSample{}).
			Where("session_id = ?", idInt).
			Order("tick ASC").
			Find(&groundSamples).Error
		if err != nil {
			return fmt.Errorf("error getting ground samples: %w", err)
		}

		groundTrack := []any{}
		for _, s := range groundSamples {
			x, y, z := decodePosition(s.Position)
			groundTrack = append(groundTrack, []any{
				s.Tick,
				[]float64{x, y, z},
				s.HeadingDeg,
				s.Speed,
				s.SteerDeg,
				s.Braking,
				s.WheelsGrounded,
			})
		}
		replay["groundTrack"] = groundTrack

		modeChanges := []model.ModeChange{}
		err = db.Model(&model.ModeChange{}).
			Where("session_id = ?", idInt).
			Order("tick ASC").
			Find(&modeChanges).Error
		if err != nil {
			return fmt.Errorf("error getting mode changes: %w", err)
		}

		transitions := []any{}
		for _, m := range modeChanges {
			x, y, z := decodePosition(m.Position)
			transitions = append(transitions, []any{
				m.Tick,
				m.FromMode,
				m.ToMode,
				[]float64{x, y, z},
				m.Relocated,
			})
		}
		replay["transitions"] = transitions

		fmt.Println("Got session data in ", time.Since(txStart))

		replayJSON, err := json.Marshal(replay)
		if err != nil {
			return fmt.Errorf("error marshalling session data: %w", err)
		}

		fileName := fmt.Sprintf("%s_%s.json.gz", session.Name, session.StartTime.Format("20060102_150405"))
		fileName = strings.ReplaceAll(fileName, " ", "_")
		fileName = strings.ReplaceAll(fileName, ":", "_")
		f, err := os.Create(fileName)
		if err != nil {
			return fmt.Errorf("error creating file: %w", err)
		}

		gzWriter := gzip.NewWriter(f)
		_, err = gzWriter.Write(replayJSON)
		if err != nil {
			f.Close()
			return fmt.Errorf("error writing to gzip: %w", err)
		}
		if err := gzWriter.Close(); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		fmt.Println("Wrote session data to ", fileName)
	}

	return nil
}

// openExportDB opens the database named by the storage configuration:
// Postgres for the postgres backend, the dump file for sqlite.
func openExportDB() (*gorm.DB, error) {
	storageCfg := config.GetStorageConfig()
	switch storageCfg.Type {
	case "postgres":
		zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		manager := database.NewManager(zlog)
		db, err := manager.GetPostgresDB()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return db, nil
	case "sqlite":
		if storageCfg.SQLite.DumpPath == "" {
			return nil, fmt.Errorf("storage.sqlite.dumpPath not configured")
		}
		return database.GetSqliteDBStandalone(storageCfg.SQLite.DumpPath)
	default:
		return nil, fmt.Errorf("storage type %q has no exportable database", storageCfg.Type)
	}
}

// decodePosition extracts coordinates from a stored WKB point. Mercator
// easting/northing come back as x/y, elevation as z.
func decodePosition(wkb []byte) (x, y, z float64) {
	if len(wkb) == 0 {
		return 0, 0, 0
	}
	g, err := geom.UnmarshalWKB(wkb)
	if err != nil {
		return 0, 0, 0
	}
	pt, ok := g.AsPoint()
	if !ok {
		return 0, 0, 0
	}
	coord, ok := pt.Coordinates()
	if !ok {
		return 0, 0, 0
	}
	return coord.XY.X, coord.XY.Y, coord.Z
}
