package main

import (
	"github.com/karthiknish/profici-comp-sub000/cmd/handlers"
	"github.com/karthiknish/profici-comp-sub000/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	handlers.Execute()
}
