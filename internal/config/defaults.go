package config

import "github.com/spf13/viper"

func setDefaults() {
	viper.SetDefault("port", 8188)
	viper.SetDefault("host", "localhost")
	viper.SetDefault("environment", "dev")
	viper.SetDefault("assets_dir", "./assets")
	viper.SetDefault("filesystem_type", FilesystemLocal)
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("smtp.port", 587)
}
