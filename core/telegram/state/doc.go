// Package state keeps per-chat conversation slots for Telegram bots.
// A slot holds one typed value per chat; nothing is shared between chats and nothing outlives the process.
package state
