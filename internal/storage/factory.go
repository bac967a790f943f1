package storage

import "github.com/yourname/skilltracker/internal"

type Repositories struct {
	Skills SkillRepository
	Time   TimeEntryRepository
	Users  UserRepository
}

func NewFileRepositories(usersFile, skillsFile, timeFile string, logger internal.Logger) (*Repositories, *FileStorage, error) {
	storage, err := NewFileStorage(usersFile, skillsFile, timeFile, logger)
	if err != nil {
		return nil, nil, err
	}
	return &Repositories{Skills: storage, Time: storage, Users: storage}, storage, nil
}

func NewPostgresRepositories(dsn string, logger internal.Logger) (*Repositories, *PostgresStorage, error) {
	storage, err := NewPostgresStorage(dsn, logger)
	if err != nil {
		return nil, nil, err
	}
	return &Repositories{Skills: storage, Time: storage, Users: storage}, storage, nil
}
