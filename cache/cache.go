// Package cache persists discovery snapshots to a file, so a client
// reconnecting to a known peripheral can skip live discovery.
package cache

import (
	"fmt"
	"io/ioutil"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/rigado/smartgadget"
)

type discoveryCache struct {
	filename string
	lock     sync.RWMutex
}

// New returns a file-backed DiscoveryCache keyed by peripheral address.
func New(filename string) smartgadget.DiscoveryCache {
	dc := discoveryCache{
		filename: filename,
	}

	return &dc
}

func (dc *discoveryCache) Store(a smartgadget.Addr, d smartgadget.Discovery, replace bool) error {
	dc.lock.Lock()
	defer dc.lock.Unlock()

	cache, err := dc.loadExisting()
	if err != nil {
		return err
	}

	_, ok := cache[a.String()]
	if ok && !replace {
		return fmt.Errorf("cache already contains discovery for %s", a.String())
	}

	cache[a.String()] = d

	return dc.storeCache(cache)
}

func (dc *discoveryCache) Load(a smartgadget.Addr) (smartgadget.Discovery, error) {
	dc.lock.RLock()
	defer dc.lock.RUnlock()

	cache, err := dc.loadExisting()
	if err != nil {
		return smartgadget.Discovery{}, err
	}

	d, ok := cache[a.String()]
	if !ok {
		return smartgadget.Discovery{}, fmt.Errorf("discovery for %s not found in cache", a.String())
	}

	return d, nil
}

func (dc *discoveryCache) Clear() error {
	dc.lock.Lock()
	defer dc.lock.Unlock()

	return os.Remove(dc.filename)
}

func (dc *discoveryCache) loadExisting() (map[string]smartgadget.Discovery, error) {
	_, err := os.Stat(dc.filename)
	if os.IsNotExist(err) {
		return map[string]smartgadget.Discovery{}, nil
	}

	in, err := ioutil.ReadFile(dc.filename)
	if err != nil {
		return nil, err
	}

	var cache map[string]smartgadget.Discovery
	err = jsoniter.Unmarshal(in, &cache)
	if err != nil {
		return nil, err
	}

	return cache, nil
}

func (dc *discoveryCache) storeCache(cache map[string]smartgadget.Discovery) error {
	out, err := jsoniter.Marshal(cache)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(dc.filename, out, 0644)
}
