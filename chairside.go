/*
Copyright 2024 Chairside Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package chairside

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/chairside/chairside/config"
	"github.com/chairside/chairside/database"
	"github.com/chairside/chairside/internal/cache"
	redis_db "github.com/chairside/chairside/internal/redis-db"
	"github.com/chairside/chairside/internal/square"
)

// Chairside represents the main struct for the Chairside application.
type Chairside struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
	square     *square.Client
	cache      cache.Cache
	runs       *RunTracker
}

// NewChairside initializes a new instance of Chairside with the provided
// database datasource. It fetches the configuration and initializes the
// Redis client, queue, Square client and run tracker.
//
// Parameters:
// - db database.IDataSource: The datasource for database operations.
//
// Returns:
// - *Chairside: A pointer to the newly created Chairside instance.
// - error: An error if any of the initialization steps fail.
func NewChairside(db database.IDataSource) (*Chairside, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient(fmt.Sprintf("redis://%s", configuration.Redis.Dns), configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}
	newCache, err := cache.NewCache()
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)
	squareClient := square.NewClient(configuration.Square.BaseURL, configuration.Square.AccessToken)

	newChairside := &Chairside{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		square:     squareClient,
		cache:      newCache,
		runs:       NewRunTracker(db),
	}
	return newChairside, nil
}
