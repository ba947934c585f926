package config

// DefaultYAML is written to a new config file. It mirrors SetDefaults.
const DefaultYAML = `# default provider: elevenlabs, openai or google
provider: "openai"
# default voice id or name for the provider
voice: "alloy"

# synthesis controls
controls:
  # speaking rate; clamped per provider (OpenAI 0.25-4.0, others 0.5-2.0)
  speed: 1.0
  # 0.5 to 2.0
  pitch: 1.0
  # 0.0 to 1.0
  volume: 1.0
  # neutral, happy, sad, excited, calm, angry, whisper or dramatic
  emotion: "neutral"

# provider transport
http:
  timeout: "30s"
  # throttle outgoing calls; 0 disables throttling
  requests_per_minute: 0

elevenlabs:
  base_url: "https://api.elevenlabs.io/v1"
  model_id: "eleven_monolingual_v1"

openai:
  base_url: "https://api.openai.com/v1"
  model: "tts-1"

google:
  base_url: "https://generativelanguage.googleapis.com/v1beta"
  model: "gemini-exp-1121"

# emotion sweep
batch:
  # delay between presets
  pacing: "500ms"
  # folder under the documents directory
  dir: "EmotionTests"

playback:
  progress_interval: "100ms"
  # 44100 or 48000
  sample_rate: 44100
  buffer_size: "100ms"

storage:
  # empty uses ~/Documents, or the user data dir when that does not exist
  documents_dir: ""

# API keys are read from ELEVENLABS_API_KEY, OPENAI_API_KEY and GOOGLE_API_KEY.
credentials:
  # optional dotenv file; reloaded on change when watch is true
  env_file: ".env"
  watch: true

server:
  addr: ":8088"

update:
  enabled: true
  repo: "tmm22/voicedeck"
  interval: "24h"
`
