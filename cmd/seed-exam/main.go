package main

import (
	"context"
	"fmt"
	"time"

	"github.com/stemsi/eduassess-backend/internal/config"
	"github.com/stemsi/eduassess-backend/internal/database"
	"github.com/stemsi/eduassess-backend/internal/logger"
	"github.com/stemsi/eduassess-backend/internal/model"
	"github.com/stemsi/eduassess-backend/internal/repository"
	"github.com/stemsi/eduassess-backend/internal/service"
)

// seed-exam creates a demo educator profile (when none exists) and a short
// practice exam, then prints its access code.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	archive, err := database.NewRecordStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open record store")
	}
	defer archive.Close()

	// Go through the Redis store when configured so the cached exam list
	// is invalidated.
	var store repository.RecordStore = archive
	if cfg.RedisEnabled() {
		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		store = repository.NewRedisStore(archive, rdb, log)
	}

	teacherService := service.NewTeacherService(store, log)
	examService := service.NewExamService(store, log)

	fmt.Println("=== Seeding Demo Exam ===")

	teacher, err := teacherService.Get(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read teacher profile")
	}
	if teacher == nil {
		teacher, err = teacherService.Save(ctx, model.SaveTeacherRequest{
			Name:         "Demo Educator",
			School:       "EduAssess Demo School",
			Department:   "Mathematics",
			Subject:      "General Mathematics",
			Level:        "Grade 10",
			AcademicYear: fmt.Sprintf("%d/%d", time.Now().Year(), time.Now().Year()+1),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create teacher profile")
		}
		fmt.Printf("Created teacher profile %q\n", teacher.Name)
	} else {
		fmt.Printf("Using existing teacher profile %q\n", teacher.Name)
	}

	exam, err := examService.Create(ctx, model.CreateExamRequest{
		Title:           "Practice Quiz: Arithmetic",
		Description:     "Five warm-up questions. You have ten minutes.",
		DurationMinutes: 10,
		Questions: []model.CreateQuestionRequest{
			{Text: "What is 7 x 8?", Options: []string{"54", "56", "58", "64"}, CorrectAnswerIndex: 1, Points: 1},
			{Text: "What is 144 / 12?", Options: []string{"11", "12", "13", "14"}, CorrectAnswerIndex: 1, Points: 1},
			{Text: "What is 15% of 200?", Options: []string{"15", "20", "30", "35"}, CorrectAnswerIndex: 2, Points: 2},
			{Text: "Which number is prime?", Options: []string{"21", "27", "29", "33"}, CorrectAnswerIndex: 2, Points: 2},
			{Text: "What is 2 to the power of 10?", Options: []string{"1024", "512", "2048", "100"}, CorrectAnswerIndex: 0, Points: 3},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}

	fmt.Printf("\nSeed completed! Exam %q\n", exam.Title)
	fmt.Printf("  ID:          %s\n", exam.ID)
	fmt.Printf("  Access code: %s\n", exam.AccessCode)
	fmt.Printf("  Share link:  %s\n", exam.ShareLink())
}
