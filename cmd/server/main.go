package main

import (
	"github.com/tradetalk/tradetalk/internal/server"
)

func main() {
	s := server.New()
	s.RegisterRoutes()
	s.Start()
}
