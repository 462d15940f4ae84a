package main

import (
	"log"
	"os"

	"github.com/spf13/viper"
)

// Create a default config file if not found config.toml
func loadConfigIfExists() {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("toml")   // REQUIRED if the config file does not have the extension in the name
	viper.AddConfigPath(".")      // optionally look for config in the working directory

	err := viper.ReadInConfig() // Find and read the config file
	if err != nil {             // Handle errors reading the config file
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config File not found
			createSampleConfig()
			log.Fatalln("Config does not exist, a sample of config was created")
		} else {
			// Found but got errors
			log.Fatalln(err)
		}
	}
}

func createSampleConfig() {
	confSample := []byte(
		`title = "configuration of rsync-go"

# [destination storage's name]
[minio]
  type = "minio"
  endpoint = "127.0.0.1:9000"
  keyAccess = "minioadmin"
  keySecret = "minioadmin"
  [minio.boltdb]
    path = "minio-flist.db"

[disk]
  type = "local"
  topDir = "./mirror"
  [disk.boltdb]
    path = "disk-flist.db"
`)

	if os.WriteFile("config.toml", confSample, 0666) != nil {
		log.Fatalln("Can't create a sample of config")
	}
}
