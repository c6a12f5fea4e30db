// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

// Config aggregates configuration for the application.
// Each field is owned by its respective concern.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Transcode TranscodeConfig `mapstructure:"transcode"`
	Queues    QueueConfig     `mapstructure:"queues"`

	// Customers holds per-customer overrides, keyed by customer id.
	Customers map[int]CustomerOverride `mapstructure:"customers"`
}

// EngineConfig controls the ingestion workers themselves.
type EngineConfig struct {
	// WorkTemplate is where origin binaries are staged locally. Recognised
	// placeholders: {customer}, {space}, {name}.
	WorkTemplate string `mapstructure:"work_template"`

	// PortalOriginRegex matches portal-upload origins, with a {customer}
	// placeholder. Matching origins are fetched ambiently from s3.
	PortalOriginRegex string `mapstructure:"portal_origin_regex"`

	// ImageProcessorURL is the endpoint of the image processing sidecar.
	ImageProcessorURL string `mapstructure:"image_processor_url"`
}

// StorageConfig names the platform's buckets.
type StorageConfig struct {
	Bucket                string `mapstructure:"bucket"`
	TimebasedInputBucket  string `mapstructure:"timebased_input_bucket"`
	TimebasedOutputBucket string `mapstructure:"timebased_output_bucket"`
	Region                string `mapstructure:"region"`
}

// TranscodeConfig selects the Elastic Transcoder pipeline and renditions.
type TranscodeConfig struct {
	PipelineName string `mapstructure:"pipeline_name"`

	// Presets maps preset id to output extension, eg
	// "1351620000001-100070" -> "mp4".
	Presets map[string]string `mapstructure:"presets"`
}

// QueueConfig names the SQS queues consumed by each role.
type QueueConfig struct {
	IngestQueueURL            string `mapstructure:"ingest_queue_url"`
	TranscodeCompleteQueueURL string `mapstructure:"transcode_complete_queue_url"`
}

// CustomerOverride relaxes platform rules for a single customer.
type CustomerOverride struct {
	// FullBucketAccess allows direct bucket-to-bucket copies from the
	// customer's own buckets.
	FullBucketAccess bool `mapstructure:"full_bucket_access"`

	// NoStoragePolicyCheck exempts the customer from quota enforcement.
	NoStoragePolicyCheck bool `mapstructure:"no_storage_policy_check"`
}

// HasFullBucketAccess reports the override for one customer.
func (c *Config) HasFullBucketAccess(customer int) bool {
	return c.Customers[customer].FullBucketAccess
}

// SkipStoragePolicyCheck reports the override for one customer.
func (c *Config) SkipStoragePolicyCheck(customer int) bool {
	return c.Customers[customer].NoStoragePolicyCheck
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "MEDIARUNNER" and the dot character
// in keys is replaced by an underscore. For example, "storage.bucket"
// becomes "MEDIARUNNER_STORAGE_BUCKET".
func Load() (*Config, error) {
	cfg := &Config{
		Engine: EngineConfig{
			WorkTemplate: "/scratch/{customer}/{space}/{name}",
		},
		Storage: StorageConfig{
			Region: "us-east-1",
		},
	}

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("MEDIARUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
