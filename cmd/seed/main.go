// Command seed fills the configured database with two demo users and a few
// notes. Existing demo users are left untouched, so it is safe to rerun.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/iliyamo/speaknote/internal/config"
	"github.com/iliyamo/speaknote/internal/database"
	"github.com/iliyamo/speaknote/internal/logger"
	"github.com/iliyamo/speaknote/internal/model"
	"github.com/iliyamo/speaknote/internal/repository"
	"github.com/iliyamo/speaknote/internal/service"
)

type seedNote struct {
	text       string
	translated string
	progress   int
}

type seedUser struct {
	username string
	password string
	notes    []seedNote
}

var demo = []seedUser{
	{
		username: "testuser1",
		password: "password123",
		notes: []seedNote{
			{text: "今天天气真好", translated: "The weather is nice today", progress: 1},
			{text: "我正在学习英语", translated: "I am learning English", progress: 2},
		},
	},
	{
		username: "testuser2",
		password: "password123",
		notes: []seedNote{
			{text: "这是一个测试笔记", translated: "This is a test note", progress: 1},
		},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New("dev")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.Open(database.Options{
		Driver: cfg.DBDriver, Path: cfg.DBPath,
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Fatal("open database", "err", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := seed(ctx, db, cfg, log); err != nil {
		log.Fatal("seed failed", "err", err)
	}
}

func seed(ctx context.Context, db *database.DB, cfg config.Config, log *logger.Logger) error {
	users := repository.NewUserRepo(db)
	notes := repository.NewNoteRepo(db)
	activities := service.NewActivityService(repository.NewActivityRepo(db), cfg.Location, service.WithLogger(log))

	for _, u := range demo {
		res, err := users.Create(ctx, u.username, u.password, cfg.BcryptCost)
		if errors.Is(err, repository.ErrUsernameExists) {
			log.Info("user exists, skipping", "username", u.username)
			continue
		}
		if err != nil {
			return fmt.Errorf("create %s: %w", u.username, err)
		}
		uid := res.InsertedID
		for _, n := range u.notes {
			nres, err := notes.Create(ctx, uid, n.text)
			if err != nil {
				return err
			}
			tr, progress := n.translated, n.progress
			if _, err := notes.Patch(ctx, nres.InsertedID, uid, repository.NotePatch{TranslatedText: &tr, Progress: &progress}); err != nil {
				return err
			}
			noteID := nres.InsertedID
			if _, err := activities.Record(ctx, uid, model.ActivityCreateNote, "", &noteID); err != nil {
				return err
			}
		}
		log.Info("seeded user", "username", u.username, "user_id", uid, "notes", len(u.notes))
	}
	return nil
}
