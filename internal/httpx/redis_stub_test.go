package httpx

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// redisStub serves get, set, setnx and del from a map through a client
// hook, so handler tests run without a redis server. Every command is
// recorded as "name key" for assertions on what the handler touched.
type redisStub struct {
	mu   sync.Mutex
	data map[string]string
	cmds []string
}

func newStubRedis() (*redis.Client, *redisStub) {
	stub := &redisStub{data: make(map[string]string)}
	c := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	c.AddHook(stub)
	return c, stub
}

func (s *redisStub) DialHook(next redis.DialHook) redis.DialHook { return next }

func (s *redisStub) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (s *redisStub) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		key, _ := cmd.Args()[1].(string)
		s.cmds = append(s.cmds, cmd.Name()+" "+key)

		switch c := cmd.(type) {
		case *redis.BoolCmd: // SET ... NX
			if _, held := s.data[key]; held {
				c.SetVal(false)
				return nil
			}
			s.data[key] = argString(cmd.Args()[2])
			c.SetVal(true)
		case *redis.StatusCmd:
			s.data[key] = argString(cmd.Args()[2])
			c.SetVal("OK")
		case *redis.StringCmd:
			v, found := s.data[key]
			if !found {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(v)
		case *redis.IntCmd: // DEL
			var n int64
			for _, a := range cmd.Args()[1:] {
				k, _ := a.(string)
				if _, held := s.data[k]; held {
					delete(s.data, k)
					n++
				}
			}
			c.SetVal(n)
		}
		return nil
	}
}

func (s *redisStub) seen(cmd string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cmds {
		if c == cmd {
			return true
		}
	}
	return false
}

func (s *redisStub) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, held := s.data[key]
	return held
}

func argString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}
