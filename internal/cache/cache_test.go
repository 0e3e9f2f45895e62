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
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestCache(t *testing.T) Cache {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	t.Cleanup(mr.Close)
	return NewCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	setValue := map[string]string{"hello": "world"}
	err := c.Set(ctx, "testKey", setValue, 10*time.Minute)
	assert.NoError(t, err)

	var getValue map[string]string
	err = c.Get(ctx, "testKey", &getValue)
	assert.NoError(t, err)
	assert.Equal(t, setValue, getValue)
}

func TestGet_MissIsNotAnError(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	var value string
	err := c.Get(ctx, "absent", &value)
	assert.NoError(t, err)
	assert.Empty(t, value)
}

func TestGet_MissReachesRedis(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewCacheWithClient(db)

	mock.ExpectGet("absent").RedisNil()

	var value string
	assert.NoError(t, c.Get(ctx, "absent", &value))
	assert.Empty(t, value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	assert.NoError(t, c.Set(ctx, "testKey", "testValue", 10*time.Minute))
	assert.NoError(t, c.Delete(ctx, "testKey"))

	var value string
	assert.NoError(t, c.Get(ctx, "testKey", &value))
	assert.Empty(t, value)
}
