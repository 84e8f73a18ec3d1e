package ingest

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/dd0wney/cluso-insider/pkg/activity"
	"github.com/dd0wney/cluso-insider/pkg/groundtruth"
)

// DefaultSyntheticSeed makes the generated dataset reproducible.
const DefaultSyntheticSeed = 2010

// SyntheticSpec sizes the generated dataset.
type SyntheticSpec struct {
	Seed          uint64
	LogonRecords  int
	DeviceRecords int
	HTTPRecords   int
	Start         activity.Day
	Days          int
}

// DefaultSyntheticSpec spans one year from 2010-01-04.
func DefaultSyntheticSpec() SyntheticSpec {
	return SyntheticSpec{
		Seed:          DefaultSyntheticSeed,
		LogonRecords:  200,
		DeviceRecords: 150,
		HTTPRecords:   300,
		Start:         activity.NewDay(2010, 1, 4),
		Days:          365,
	}
}

// Dataset is a generated activity set with its matching ground truth.
type Dataset struct {
	Logs        activity.Logs
	GroundTruth *groundtruth.GroundTruth
}

var (
	syntheticMalicious = []string{"RCW0822", "JCE0258", "AAB0754"}
	syntheticDomains   = []string{
		"google.com", "facebook.com", "1and1.com", "aa.com", "lockheedmartinjobs.com",
		"careerbuilder.com", "aol.com", "linkedin.com", "indeed.com", "company.com",
	}
)

// SyntheticUsers returns the fixed user population: four CERT-style ids
// followed by USR0001..USR0046.
func SyntheticUsers() []string {
	users := []string{"AAB0754", "ABM0513", "JCE0258", "RCW0822"}
	for i := 1; i <= 46; i++ {
		users = append(users, fmt.Sprintf("USR%04d", i))
	}
	return users
}

// SyntheticPCs returns the fixed device population.
func SyntheticPCs() []string {
	pcs := []string{"PC-4470", "PC-5948", "PC-1782", "PC-1251", "PC-1508"}
	for i := 1; i <= 15; i++ {
		pcs = append(pcs, fmt.Sprintf("PC-%04d", i))
	}
	return pcs
}

// Synthetic generates a demonstration dataset. Equal specs with a non-zero
// seed produce equal datasets. The ground truth names three of the users and
// the day 30 days after Start.
func Synthetic(spec SyntheticSpec) Dataset {
	faker := gofakeit.New(spec.Seed)
	users, pcs := SyntheticUsers(), SyntheticPCs()
	days := spec.Days
	if days <= 0 {
		days = 1
	}
	randomDay := func() activity.Day {
		return spec.Start.AddDays(faker.IntRange(0, days-1))
	}

	var logs activity.Logs
	for i := 0; i < spec.LogonRecords; i++ {
		logs.Logon = append(logs.Logon, activity.LogonRecord{
			User:    faker.RandomString(users),
			PC:      faker.RandomString(pcs),
			Day:     randomDay(),
			Logons:  faker.IntRange(1, 9),
			Logoffs: faker.IntRange(1, 9),
		})
	}
	for i := 0; i < spec.DeviceRecords; i++ {
		logs.Device = append(logs.Device, activity.DeviceRecord{
			User:        faker.RandomString(users),
			PC:          faker.RandomString(pcs),
			Day:         randomDay(),
			Connects:    faker.IntRange(1, 4),
			Disconnects: faker.IntRange(1, 4),
		})
	}
	for i := 0; i < spec.HTTPRecords; i++ {
		logs.HTTP = append(logs.HTTP, activity.HTTPRecord{
			User:     faker.RandomString(users),
			Domain:   faker.RandomString(syntheticDomains),
			Day:      randomDay(),
			Requests: faker.IntRange(1, 49),
		})
	}

	return Dataset{
		Logs:        logs,
		GroundTruth: groundtruth.FromUsers(syntheticMalicious, spec.Start.AddDays(30)),
	}
}
