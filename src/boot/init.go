package boot

import (
	"context"
	"log"
	"sisaplus/src/core"
	"sisaplus/src/db"
	"sisaplus/src/lib"
	"sisaplus/src/models"
	"time"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Food{},
		&models.Booking{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitScheduler starts the scheduler with the recurring expiry sweep that
// flips overdue foods to expired and cancels their dangling bookings.
func InitScheduler(engine *core.Engine) {
	id, err := lib.CreateCronJob(func() {
		engine.SweepExpired(context.Background())
	}, 1*time.Minute)
	if err != nil {
		log.Printf("Error scheduling expiry sweep: %s\n", err.Error())
		return
	}
	log.Printf("Expiry sweep job scheduled: %s\n", *id)
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
		return
	}
}
