package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/vortex/engine/assets/loaders"
	"github.com/spaghettifunk/vortex/engine/core"
	"github.com/spaghettifunk/vortex/engine/scene"
)

// Editors usually write a file in several steps; events closer than this collapse into one.
const DefaultDebounce = 100 * time.Millisecond

var ErrAssetManagerClosed = errors.New("asset manager already closed")

type AssetInfo struct {
	Path       string
	Type       loaders.ResourceType
	LastLoaded time.Time
}

// NotifyFunc receives the path (relative to the asset root) of a changed asset.
type NotifyFunc func(event core.AssetEvent)

/**
 * @brief Indexes every asset under a root directory, loads them through the
 * registered loaders and watches the tree for changes. Change notifications are
 * raised from the watcher goroutine, so NotifyFunc must be safe to call from it.
 */
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[loaders.ResourceType]loaders.Loader

	mutex sync.RWMutex

	notify   NotifyFunc
	debounce time.Duration
	pending  map[string]*time.Timer

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
}

type Option func(*AssetManager)

// WithNotify replaces the default notification, which queues EVENT_CODE_ASSET_CHANGED.
func WithNotify(fn NotifyFunc) Option {
	return func(am *AssetManager) {
		am.notify = fn
	}
}

func WithDebounce(d time.Duration) Option {
	return func(am *AssetManager) {
		am.debounce = d
	}
}

func NewAssetManager(opts ...Option) (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[loaders.ResourceType]loaders.Loader),
		notify:   enqueueAssetEvent,
		debounce: DefaultDebounce,
		pending:  make(map[string]*time.Timer),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(am)
	}
	return am, nil
}

func enqueueAssetEvent(event core.AssetEvent) {
	err := core.EventEnqueue(core.EventContext{Type: core.EVENT_CODE_ASSET_CHANGED, Data: &event})
	if err != nil {
		core.LogWarn("asset change for %s dropped: %s", event.Path, err)
	}
}

func (am *AssetManager) Initialize(assetsDir string) error {
	info, err := os.Stat(assetsDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("assets path %s is not a directory", assetsDir)
	}
	am.root = filepath.Clean(assetsDir)

	// Register loaders
	am.registerLoader(loaders.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(loaders.ResourceTypeImage, &loaders.ImageLoader{FlipY: true})
	am.registerLoader(loaders.ResourceTypeModel, &loaders.ModelLoader{})
	am.registerLoader(loaders.ResourceTypeMaterial, &loaders.MaterialLoader{})

	if err := am.addRecursive(am.root); err != nil {
		return err
	}

	am.wg.Add(1)
	go am.start()

	core.LogInfo("Asset manager watching %s (%d assets indexed)", am.root, am.Count())
	return nil
}

func (am *AssetManager) Root() string {
	return am.root
}

func (am *AssetManager) Count() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Info returns the index entry of an asset, addressed relative to the root.
func (am *AssetManager) Info(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.ToSlash(filepath.Clean(name))]
	return info, ok
}

// Path resolves an asset name against the root.
func (am *AssetManager) Path(name string) string {
	return filepath.Join(am.root, filepath.FromSlash(name))
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return ErrAssetManagerClosed
	}
	return am.watchRecursive(name)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType loaders.ResourceType, loader loaders.Loader) {
	am.loaders[assetType] = loader
}

/**
 * @brief Loads an indexed asset with the loader registered for its type.
 * @param name The asset path relative to the asset root, e.g. "materials/cube.toml".
 */
func (am *AssetManager) LoadAsset(name string) (*loaders.Resource, error) {
	key := filepath.ToSlash(filepath.Clean(name))

	am.mutex.Lock()
	asset, exists := am.assets[key]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[key] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, fmt.Errorf("asset not found: %s", key)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}

	res, err := loader.Load(am.Path(key))
	if err != nil {
		core.LogError("failed to load %s: %s", key, err)
		return nil, err
	}
	return res, nil
}

func (am *AssetManager) LoadMesh(name string) (*loaders.MeshData, error) {
	res, err := am.loadAs(name, loaders.ResourceTypeModel)
	if err != nil {
		return nil, err
	}
	return res.Data.(*loaders.MeshData), nil
}

func (am *AssetManager) LoadImage(name string) (*loaders.ImageData, error) {
	res, err := am.loadAs(name, loaders.ResourceTypeImage)
	if err != nil {
		return nil, err
	}
	return res.Data.(*loaders.ImageData), nil
}

func (am *AssetManager) LoadMaterial(name string) (*scene.Material, error) {
	res, err := am.loadAs(name, loaders.ResourceTypeMaterial)
	if err != nil {
		return nil, err
	}
	return res.Data.(*scene.Material), nil
}

func (am *AssetManager) loadAs(name string, want loaders.ResourceType) (*loaders.Resource, error) {
	res, err := am.LoadAsset(name)
	if err != nil {
		return nil, err
	}
	if res.Type != want {
		return nil, fmt.Errorf("asset %s is a %s, not a %s", name, res.Type, want)
	}
	return res, nil
}

// Shutdown stops the watcher goroutine and waits for it. Safe to call more than once.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	for path, timer := range am.pending {
		timer.Stop()
		delete(am.pending, path)
	}
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	return am.fsnotify.Close()
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if e.Has(fsnotify.Create) {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("asset watcher: cannot watch %s: %s", e.Name, err)
			}
			return
		}
	}
	// Handle create or modify events
	if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
		if key, ok := am.indexFile(e.Name); ok {
			am.schedule(key)
		}
	}
	// A removed directory drops its own watch; only the index needs updating.
	if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
		am.removeAsset(e.Name)
	}
}

// schedule (re)starts the debounce timer of key.
func (am *AssetManager) schedule(key string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if am.isClosed {
		return
	}
	if timer, ok := am.pending[key]; ok {
		timer.Reset(am.debounce)
		return
	}
	am.pending[key] = time.AfterFunc(am.debounce, func() {
		am.fire(key)
	})
}

func (am *AssetManager) fire(key string) {
	am.mutex.Lock()
	delete(am.pending, key)
	info, ok := am.assets[key]
	closed := am.isClosed
	am.mutex.Unlock()
	if !ok || closed {
		return
	}

	// Shaders are handed to the pipeline only once the binary is complete.
	if info.Type == loaders.ResourceTypeShader {
		if _, err := am.loaders[info.Type].Load(am.Path(key)); err != nil {
			core.LogWarn("ignoring change of %s: %s", key, err)
			return
		}
	}
	core.LogDebug("asset changed: %s", key)
	am.notify(core.AssetEvent{Path: key})
}

// watchRecursive adds all directories under the given one to the watch list and
// indexes the files found along the way.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.indexFile(walkPath)
		return nil
	})
}

func (am *AssetManager) relative(path string) (string, bool) {
	rel, err := filepath.Rel(am.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// indexFile records a known asset type and returns its key.
func (am *AssetManager) indexFile(path string) (string, bool) {
	assetType := determineAssetType(path)
	if assetType == loaders.ResourceTypeNone {
		return "", false
	}
	key, ok := am.relative(path)
	if !ok {
		return "", false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[key] = AssetInfo{
		Path: key,
		Type: assetType,
	}
	return key, true
}

// Remove the asset, or every asset below a removed directory, from the index.
func (am *AssetManager) removeAsset(path string) {
	key, ok := am.relative(path)
	if !ok {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()

	prefix := key + "/"
	for name := range am.assets {
		if name == key || strings.HasPrefix(name, prefix) {
			delete(am.assets, name)
		}
	}
}

func determineAssetType(path string) loaders.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return loaders.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return loaders.ResourceTypeImage
	case ".toml":
		return loaders.ResourceTypeMaterial
	case ".obj":
		return loaders.ResourceTypeModel
	default:
		return loaders.ResourceTypeNone
	}
}
