package config

import (
	"log"
	"os"
)

var logger = log.New(os.Stderr, "", 0)
