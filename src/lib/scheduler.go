package lib

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

var scheduler gocron.Scheduler

func NewScheduler(s gocron.Scheduler) {
	scheduler = s
}

func GetScheduler() (gocron.Scheduler, error) {
	if scheduler != nil {
		return scheduler, nil
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("Error initializing Scheduler: %s\n", err.Error())
		return nil, err
	}
	scheduler = sched
	return sched, nil
}

// CreateDurationJob runs handler every interval. A run that is still going
// when the next is due pushes the next one back.
func CreateDurationJob(name string, interval time.Duration, handler any, args ...any) (*string, error) {
	return createJob(name, gocron.DurationJob(interval), handler, args...)
}

// CreateDailyJob runs handler once a day at hour:00 scheduler-local time.
func CreateDailyJob(name string, hour uint, handler any, args ...any) (*string, error) {
	return createJob(name, gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, 0, 0))), handler, args...)
}

func createJob(name string, def gocron.JobDefinition, handler any, args ...any) (*string, error) {
	sched, err := GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return nil, err
	}
	j, err := sched.NewJob(
		def,
		gocron.NewTask(handler, args...),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("[Scheduler] Error creating job %s: %s\n", name, err.Error())
		return nil, err
	}
	id := j.ID().String()
	log.Printf("[Scheduler] Job: %s %s\n", id, j.Name())
	return &id, nil
}
