package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedMajors = []string{"Computer Science", "Biology", "Economics", "English", "Mechanical Engineering", "Psychology"}

var seedInterests = []string{"hiking", "live music", "coffee", "climbing", "film", "cooking", "board games", "running"}

// SeedTestData resets the database and populates it with demo profiles,
// swipe decisions and the matches/messages implied by mutual likes.
//
// Behavior:
//  1. Clears all tables.
//  2. Creates 20 profiles (10 male, 10 female) with hashed passwords,
//     photos, interests and prompt answers.
//  3. Generates ~200 decisions with ~70% likes; every 3rd pair is forced
//     mutual and gets a Match plus an opening message.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"messages", "matches", "block_relations", "swipe_decisions", "prompt_answers", "interests", "photos", "profiles"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE profiles AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE matches AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE messages AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('profiles','matches','messages')")
	}

	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	for i := 1; i <= 20; i++ {
		gender, preferred := "male", "female"
		if i > 10 {
			gender, preferred = "female", "male"
		}

		profile := Profile{
			Name:            fmt.Sprintf("student%d", i),
			Age:             18 + r.Intn(8),
			Bio:             "Here for coffee runs and bad puns.",
			Major:           seedMajors[r.Intn(len(seedMajors))],
			Year:            1 + r.Intn(4),
			University:      "State University",
			Gender:          gender,
			PreferredGender: preferred,
			PasswordHash:    string(hash),
			Premium:         i%7 == 0,
			LastActiveAt:    time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}

		photos := []Photo{
			{ProfileID: profile.ID, URL: fmt.Sprintf("https://cdn.example.com/p/%d/0.jpg", profile.ID), Position: 0},
			{ProfileID: profile.ID, URL: fmt.Sprintf("https://cdn.example.com/p/%d/1.jpg", profile.ID), Position: 1},
		}
		if err := db.Create(&photos).Error; err != nil {
			return fmt.Errorf("failed to seed photos: %w", err)
		}

		for j := 0; j < 3; j++ {
			tag := seedInterests[r.Intn(len(seedInterests))]
			db.Create(&Interest{ProfileID: profile.ID, Tag: tag})
		}
		db.Create(&PromptAnswer{
			ProfileID: profile.ID,
			Prompt:    "My ideal Sunday",
			Answer:    "Farmers market, then absolutely nothing.",
		})
	}
	log.Println("Seeded 20 profiles.")

	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"liked", "super_liked", "updated_at"}),
	}

	counter := 0
	for actorID := uint64(1); actorID <= 20; actorID++ {
		for j := 0; j < 10; j++ {
			targetID := uint64(r.Intn(20) + 1)
			if actorID == targetID {
				continue
			}

			var actor, target Profile
			if err := db.First(&actor, actorID).Error; err != nil {
				continue
			}
			if err := db.First(&target, targetID).Error; err != nil {
				continue
			}
			if actor.Gender == target.Gender {
				continue
			}

			liked := r.Intn(100) < 70

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				liked = true
				recip := SwipeDecision{ActorID: targetID, TargetID: actorID, Liked: true}
				db.Clauses(upsert).Create(&recip)
			}

			decision := SwipeDecision{
				ActorID:    actorID,
				TargetID:   targetID,
				Liked:      liked,
				SuperLiked: liked && r.Intn(100) < 10,
			}
			if err := db.Clauses(upsert).Create(&decision).Error; err != nil {
				return fmt.Errorf("failed to seed decision: %w", err)
			}

			if liked {
				var reverse int64
				db.Model(&SwipeDecision{}).
					Where("actor_id = ? AND target_id = ? AND liked = true", targetID, actorID).
					Count(&reverse)
				if reverse > 0 {
					low, high := NormalizePair(actorID, targetID)
					match := Match{ProfileAID: low, ProfileBID: high, IsActive: true}
					res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&match)
					if res.Error == nil && res.RowsAffected > 0 {
						db.Create(&Message{
							MatchID:  match.ID,
							SenderID: actorID,
							Content:  "hey! we matched",
						})
					}
				}
			}

			counter++
		}
	}

	return nil
}
